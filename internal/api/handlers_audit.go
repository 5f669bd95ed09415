// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/audit"
)

// checkAuditAvailable responds 503 when the audit trail is disabled
func (h *Handler) checkAuditAvailable(w http.ResponseWriter) bool {
	if h.audit == nil {
		respondError(w, http.StatusServiceUnavailable, "AUDIT_DISABLED", "Audit trail is not enabled", nil)
		return false
	}
	return true
}

// parseTimeParam parses an RFC3339 query parameter; empty means unset
func parseTimeParam(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %w", key, err)
	}
	return t, nil
}

// parseLimitParam parses the limit query parameter; zero means default
func parseLimitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseTypesParam parses the comma-separated event type filter
func parseTypesParam(r *http.Request) []audit.EventType {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var types []audit.EventType
	for _, t := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			types = append(types, audit.EventType(trimmed))
		}
	}
	return types
}

// parsePeriod extracts start and end parameters, responding on error
func parsePeriod(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
		return start, end, false
	}
	end, err = parseTimeParam(r, "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
		return start, end, false
	}
	return start, end, true
}

// HandleAuditUserActivity lists one user's audit events
// GET /api/v1/audit/user-activity?user_id=u1&start=...&end=...&types=create,update&limit=50
func (h *Handler) HandleAuditUserActivity(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "user_id is required", nil)
		return
	}

	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	events, err := h.audit.UserActivity(r.Context(), userID, start, end, parseTypesParam(r), parseLimitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"events":  events,
		"count":   len(events),
	})
}

// HandleAuditResourceHistory lists audit events for one resource
// GET /api/v1/audit/resource-history?resource_type=invoice&resource_id=inv-001
func (h *Handler) HandleAuditResourceHistory(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	resourceType := r.URL.Query().Get("resource_type")
	resourceID := r.URL.Query().Get("resource_id")
	if resourceType == "" || resourceID == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "resource_type and resource_id are required", nil)
		return
	}

	events, err := h.audit.ResourceHistory(r.Context(), resourceType, resourceID, parseLimitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"events":        events,
		"count":         len(events),
	})
}

// HandleAuditSecurityEvents lists authentication and permission events
// GET /api/v1/audit/security-events?severity=high&start=...&end=...
func (h *Handler) HandleAuditSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	severity := audit.Severity(r.URL.Query().Get("severity"))
	events, err := h.audit.SecurityEvents(r.Context(), start, end, severity, parseLimitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// HandleAuditFailedOperations lists failed operations
// GET /api/v1/audit/failed-operations?start=...&end=...
func (h *Handler) HandleAuditFailedOperations(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	events, err := h.audit.FailedOperations(r.Context(), start, end, parseLimitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// HandleAuditReport generates a period activity report
// GET /api/v1/audit/report?start=...&end=...&user_id=u1
func (h *Handler) HandleAuditReport(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	start, end, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	if start.IsZero() || end.IsZero() {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, "start and end are required", nil)
		return
	}

	report, err := h.audit.GenerateReport(r.Context(), start, end, r.URL.Query().Get("user_id"), parseTypesParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, report)
}

// HandleAuditCleanup deletes audit events past retention
// POST /api/v1/audit/cleanup
func (h *Handler) HandleAuditCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.checkAuditAvailable(w) {
		return
	}

	var req AuditCleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid request body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	deleted, err := h.audit.Cleanup(r.Context(), req.KeepDays)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Deleted %d audit events older than %d days", deleted, req.KeepDays),
		"deleted_count": deleted,
	})
}
