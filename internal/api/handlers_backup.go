// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/audit"
	"github.com/daftarhq/daftar/internal/backup"
	"github.com/daftarhq/daftar/internal/metrics"
)

// checkBackupsAvailable responds 503 when the backup subsystem is disabled
func (h *Handler) checkBackupsAvailable(w http.ResponseWriter) bool {
	if h.backups == nil {
		respondError(w, http.StatusServiceUnavailable, "BACKUP_DISABLED", "Backup functionality is not enabled", nil)
		return false
	}
	return true
}

// HandleCreateBackup runs a backup job and returns its record
// POST /api/v1/backups
func (h *Handler) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	var req CreateBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An empty body means the configured default kind; anything else
		// that fails to decode is a bad request
		if !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body", err)
			return
		}
		req.Kind = ""
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	rec, err := h.backups.CreateBackup(r.Context(), backup.BackupKind(req.Kind))

	h.recordAudit(audit.Entry{
		Type:         audit.EventBackup,
		Severity:     audit.SeverityHigh,
		Actor:        actorFromRequest(r),
		Action:       "create_backup",
		ResourceType: "backup",
		ResourceID:   recordID(rec),
		Successful:   err == nil,
		ErrorMessage: errMessage(err),
	})

	if err != nil {
		respondError(w, http.StatusInternalServerError, "BACKUP_FAILED", err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusCreated, rec)
}

// HandleListBackups lists all backup records, newest first
// GET /api/v1/backups
func (h *Handler) HandleListBackups(w http.ResponseWriter, _ *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	backups := h.backups.ListBackups()
	respondSuccess(w, http.StatusOK, map[string]any{
		"backups": backups,
		"count":   len(backups),
	})
}

// HandleBackupStatus reports aggregate backup state
// GET /api/v1/backups/status
func (h *Handler) HandleBackupStatus(w http.ResponseWriter, _ *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	respondSuccess(w, http.StatusOK, h.backups.Status())
}

// HandleGetBackup returns one backup record
// GET /api/v1/backups/{id}
func (h *Handler) HandleGetBackup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.backups.GetBackup(id)
	if err != nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, rec)
}

// HandleRestoreBackup restores a backup into a target directory
// POST /api/v1/backups/{id}/restore
func (h *Handler) HandleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	id := chi.URLParam(r, "id")

	var req RestoreBackupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	err := h.backups.RestoreBackup(r.Context(), id, req.TargetDir)

	h.recordAudit(audit.Entry{
		Type:         audit.EventRestore,
		Severity:     audit.SeverityCritical,
		Actor:        actorFromRequest(r),
		Action:       "restore_backup",
		ResourceType: "backup",
		ResourceID:   id,
		Successful:   err == nil,
		ErrorMessage: errMessage(err),
	})

	if err != nil {
		if backup.IsNotFound(err) {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), err)
			return
		}
		respondError(w, http.StatusInternalServerError, "RESTORE_FAILED", err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"message":    fmt.Sprintf("Backup %s restored to %s", id, req.TargetDir),
		"backup_id":  id,
		"target_dir": req.TargetDir,
	})
}

// HandleBackupCleanup applies retention to stored backups
// POST /api/v1/backups/cleanup
func (h *Handler) HandleBackupCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.checkBackupsAvailable(w) {
		return
	}

	deleted := h.backups.CleanupOldBackups(r.Context())
	metrics.BackupRetentionDeletions.Add(float64(deleted))

	respondSuccess(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Deleted %d expired backups", deleted),
		"deleted_count": deleted,
	})
}

// recordID is nil-safe access to a record id
func recordID(rec *backup.Record) string {
	if rec == nil {
		return ""
	}
	return rec.ID
}

// errMessage is nil-safe access to an error string
func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
