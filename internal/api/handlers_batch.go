// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/audit"
	"github.com/daftarhq/daftar/internal/batch"
	"github.com/daftarhq/daftar/internal/metrics"
)

// checkBatchAvailable responds 503 when the batch subsystem is disabled
func (h *Handler) checkBatchAvailable(w http.ResponseWriter) bool {
	if h.batch == nil {
		respondError(w, http.StatusServiceUnavailable, "BATCH_DISABLED", "Batch processing is not enabled", nil)
		return false
	}
	return true
}

// HandleBatchImport runs an import job over a server-side file
// POST /api/v1/batch/import
func (h *Handler) HandleBatchImport(w http.ResponseWriter, r *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	var req BatchImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	op := batch.OpImport
	if req.ValidateOnly {
		op = batch.OpValidate
	}

	jobID := h.batch.CreateJob(op, batch.DataType(req.DataType), map[string]string{
		"file_path": req.FilePath,
	})

	result, err := h.batch.ImportFromFile(r.Context(), jobID, req.FilePath, batch.Format(req.Format), batch.ImportOptions{
		ChunkSize:    req.ChunkSize,
		ValidateOnly: req.ValidateOnly,
	})

	h.recordAudit(audit.Entry{
		Type:         audit.EventImport,
		Actor:        actorFromRequest(r),
		Action:       "batch_import",
		ResourceType: "batch_job",
		ResourceID:   jobID,
		Metadata:     map[string]string{"data_type": req.DataType, "format": req.Format},
		Successful:   err == nil,
		ErrorMessage: errMessage(err),
	})

	if err != nil {
		respondError(w, http.StatusInternalServerError, "IMPORT_FAILED", err.Error(), err)
		return
	}

	metrics.ObserveBatchJob(string(op), string(result.Status), result.SuccessfulRecords, result.FailedRecords)

	respondSuccess(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"result": result,
	})
}

// HandleBatchExport writes stored records of one data type to a file
// POST /api/v1/batch/export
func (h *Handler) HandleBatchExport(w http.ResponseWriter, r *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	var req BatchExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	path := req.FilePath
	if path == "" {
		name := fmt.Sprintf("%s_export_%s.%s", req.DataType, time.Now().Format("20060102_150405"), req.Format)
		path = filepath.Join(h.workDir, name)
	}

	jobID := h.batch.CreateJob(batch.OpExport, batch.DataType(req.DataType), map[string]string{
		"file_path": path,
	})

	result, err := h.batch.ExportToFile(r.Context(), jobID, path, batch.Format(req.Format))

	h.recordAudit(audit.Entry{
		Type:         audit.EventExport,
		Actor:        actorFromRequest(r),
		Action:       "batch_export",
		ResourceType: "batch_job",
		ResourceID:   jobID,
		Metadata:     map[string]string{"data_type": req.DataType, "format": req.Format},
		Successful:   err == nil,
		ErrorMessage: errMessage(err),
	})

	if err != nil {
		respondError(w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), err)
		return
	}

	metrics.ObserveBatchJob(string(batch.OpExport), string(result.Status), result.SuccessfulRecords, result.FailedRecords)

	respondSuccess(w, http.StatusOK, map[string]any{
		"job_id":    jobID,
		"file_path": path,
		"result":    result,
	})
}

// HandleListBatchJobs lists all batch jobs
// GET /api/v1/batch/jobs
func (h *Handler) HandleListBatchJobs(w http.ResponseWriter, _ *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	jobs := h.batch.ListJobs()
	respondSuccess(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleGetBatchJob returns one batch job
// GET /api/v1/batch/jobs/{id}
func (h *Handler) HandleGetBatchJob(w http.ResponseWriter, r *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	job, err := h.batch.GetJob(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, job)
}

// HandleCancelBatchJob cancels a pending or processing batch job
// POST /api/v1/batch/jobs/{id}/cancel
func (h *Handler) HandleCancelBatchJob(w http.ResponseWriter, r *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.batch.GetJob(id); err != nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), err)
		return
	}

	if !h.batch.CancelJob(id) {
		respondError(w, http.StatusConflict, ErrCodeConflict, "Job already finished", nil)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Job %s cancelled", id),
		"job_id":  id,
	})
}

// HandleBatchTemplate generates an import template file
// GET /api/v1/batch/template?data_type=invoices&format=csv
func (h *Handler) HandleBatchTemplate(w http.ResponseWriter, r *http.Request) {
	if !h.checkBatchAvailable(w) {
		return
	}

	dataType := r.URL.Query().Get("data_type")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(batch.FormatCSV)
	}

	path, err := batch.CreateTemplate(batch.DataType(dataType), batch.Format(format), h.workDir)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, batch.ErrUnknownDataType) || errors.Is(err, batch.ErrUnsupportedFormat) {
			status = http.StatusBadRequest
		}
		respondError(w, status, "TEMPLATE_FAILED", err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"file_path": path,
		"data_type": dataType,
		"format":    format,
	})
}
