// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/daftarhq/daftar/internal/audit"
	"github.com/daftarhq/daftar/internal/backup"
	"github.com/daftarhq/daftar/internal/batch"
	"github.com/daftarhq/daftar/internal/logging"
)

// BackupManager is the backup surface the handlers depend on
type BackupManager interface {
	CreateBackup(ctx context.Context, kind backup.BackupKind) (*backup.Record, error)
	RestoreBackup(ctx context.Context, id, targetDir string) error
	GetBackup(id string) (backup.Record, error)
	ListBackups() []backup.Record
	Status() backup.Status
	CleanupOldBackups(ctx context.Context) int
}

// BatchProcessor is the batch surface the handlers depend on
type BatchProcessor interface {
	CreateJob(op batch.Operation, dataType batch.DataType, metadata map[string]string) string
	GetJob(id string) (batch.Job, error)
	ListJobs() []batch.Job
	CancelJob(id string) bool
	ImportFromFile(ctx context.Context, jobID, path string, format batch.Format, opts batch.ImportOptions) (*batch.Result, error)
	ExportToFile(ctx context.Context, jobID, path string, format batch.Format) (*batch.Result, error)
}

// AuditRecorder is the audit surface the handlers depend on
type AuditRecorder interface {
	Record(entry audit.Entry) (*audit.Event, error)
	UserActivity(ctx context.Context, userID string, start, end time.Time, types []audit.EventType, limit int) ([]audit.Event, error)
	ResourceHistory(ctx context.Context, resourceType, resourceID string, limit int) ([]audit.Event, error)
	SecurityEvents(ctx context.Context, start, end time.Time, severity audit.Severity, limit int) ([]audit.Event, error)
	FailedOperations(ctx context.Context, start, end time.Time, limit int) ([]audit.Event, error)
	GenerateReport(ctx context.Context, start, end time.Time, userID string, types []audit.EventType) (*audit.Report, error)
	Cleanup(ctx context.Context, keepDays int) (int, error)
}

// Pinger reports datastore liveness for health checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the subsystems the HTTP endpoints drive
type Handler struct {
	backups BackupManager
	batch   BatchProcessor
	audit   AuditRecorder
	db      Pinger

	// workDir receives generated exports and templates
	workDir string
}

// NewHandler wires the HTTP handlers to their subsystems. Any dependency
// may be nil; its endpoints then respond 503.
func NewHandler(backups BackupManager, batchProc BatchProcessor, auditRec AuditRecorder, db Pinger, workDir string) *Handler {
	return &Handler{
		backups: backups,
		batch:   batchProc,
		audit:   auditRec,
		db:      db,
		workDir: workDir,
	}
}

// actorFromRequest derives the acting user from request headers. Daftar
// runs behind an authenticating proxy that sets these.
func actorFromRequest(r *http.Request) audit.Actor {
	return audit.Actor{
		UserID:    r.Header.Get("X-User-ID"),
		UserName:  r.Header.Get("X-User-Name"),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
}

// recordAudit emits an audit event, tolerating a nil recorder. Audit
// failures are logged, never surfaced to the client.
func (h *Handler) recordAudit(entry audit.Entry) {
	if h.audit == nil {
		return
	}
	if _, err := h.audit.Record(entry); err != nil {
		logging.Warn().Err(err).Str("action", entry.Action).Msg("Failed to record audit event")
	}
}

// HandleHealth reports process and datastore liveness
// GET /healthz
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
				Status:    "error",
				Data:      status,
				Timestamp: time.Now(),
			})
			return
		}
		status["database"] = "ok"
	}

	respondSuccess(w, http.StatusOK, status)
}
