// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/audit"
	"github.com/daftarhq/daftar/internal/backup"
)

// TestCreateBackupEndpoint tests backup creation over HTTP
func TestCreateBackupEndpoint(t *testing.T) {
	mgr := &mockBackupManager{
		createRecord: &backup.Record{ID: "backup_20260823_020000", Status: backup.StatusCompleted},
	}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups", map[string]string{"kind": "full"})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}
	if envelope.Status != "success" {
		t.Errorf("envelope status = %s", envelope.Status)
	}
	if mgr.lastKind != backup.KindFull {
		t.Errorf("manager received kind %s, want full", mgr.lastKind)
	}
	if got := dataMap(t, envelope)["id"]; got != "backup_20260823_020000" {
		t.Errorf("record id = %v", got)
	}
}

// TestCreateBackupInvalidKind tests request validation
func TestCreateBackupInvalidKind(t *testing.T) {
	mgr := &mockBackupManager{}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups", map[string]string{"kind": "snapshot"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeValidationFailed)
	}
}

// TestCreateBackupMalformedBody tests that a broken JSON body is
// rejected rather than treated as the default kind
func TestCreateBackupMalformedBody(t *testing.T) {
	mgr := &mockBackupManager{
		createRecord: &backup.Record{ID: "backup_20260823_020000", Status: backup.StatusCompleted},
	}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	resp, err := http.Post(srv.URL+"/api/v1/backups", "application/json", strings.NewReader(`{"kind":`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Test cleanup

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeInvalidJSON {
		t.Errorf("error = %+v, want %s", envelope.Error, ErrCodeInvalidJSON)
	}
}

// TestCreateBackupFailure tests the error envelope for a failed job
func TestCreateBackupFailure(t *testing.T) {
	mgr := &mockBackupManager{createErr: fmt.Errorf("wrapped: %w", backup.ErrSizeExceeded)}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups", nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "BACKUP_FAILED" {
		t.Errorf("error = %+v", envelope.Error)
	}
}

// TestListAndGetBackupEndpoints tests listing and lookup
func TestListAndGetBackupEndpoints(t *testing.T) {
	mgr := &mockBackupManager{
		records: []backup.Record{
			{ID: "backup_b", Status: backup.StatusCompleted},
			{ID: "backup_a", Status: backup.StatusFailed},
		},
	}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/api/v1/backups", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d, want 200", status)
	}
	if got := dataMap(t, envelope)["count"]; got != float64(2) {
		t.Errorf("count = %v, want 2", got)
	}

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/api/v1/backups/backup_b", nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d, want 200", status)
	}
	if got := dataMap(t, envelope)["id"]; got != "backup_b" {
		t.Errorf("record id = %v", got)
	}

	status, envelope = doJSON(t, http.MethodGet, srv.URL+"/api/v1/backups/backup_missing", nil)
	if status != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", envelope.Error)
	}
}

// TestBackupStatusEndpoint tests the aggregate status view
func TestBackupStatusEndpoint(t *testing.T) {
	mgr := &mockBackupManager{
		status: backup.Status{TotalBackups: 3, CompletedBackups: 2, FailedBackups: 1},
	}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodGet, srv.URL+"/api/v1/backups/status", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := dataMap(t, envelope)["total_backups"]; got != float64(3) {
		t.Errorf("total_backups = %v, want 3", got)
	}
}

// TestRestoreBackupEndpoint tests restore request handling
func TestRestoreBackupEndpoint(t *testing.T) {
	mgr := &mockBackupManager{}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups/backup_x/restore",
		map[string]string{"target_dir": "/tmp/restore"})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if mgr.lastRestoreID != "backup_x" {
		t.Errorf("restored id = %s, want backup_x", mgr.lastRestoreID)
	}

	// target_dir is required
	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups/backup_x/restore",
		map[string]string{})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v", envelope.Error)
	}

	// Unknown records map to 404
	mgr.restoreErr = fmt.Errorf("wrapped: %w", backup.ErrRecordNotFound)
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups/backup_y/restore",
		map[string]string{"target_dir": "/tmp/restore"})
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}

	// Integrity failures map to 500
	mgr.restoreErr = errors.New("checksum mismatch")
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups/backup_y/restore",
		map[string]string{"target_dir": "/tmp/restore"})
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
}

// TestBackupCleanupEndpoint tests manual retention application
func TestBackupCleanupEndpoint(t *testing.T) {
	mgr := &mockBackupManager{cleaned: 4}
	srv := newTestServer(t, NewHandler(mgr, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups/cleanup", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if got := dataMap(t, envelope)["deleted_count"]; got != float64(4) {
		t.Errorf("deleted_count = %v, want 4", got)
	}
}

// TestBackupEndpointsDisabled tests the 503 guard with no backup manager
func TestBackupEndpointsDisabled(t *testing.T) {
	srv := newTestServer(t, NewHandler(nil, nil, nil, nil, t.TempDir()))

	status, envelope := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups", nil)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if envelope.Error == nil || envelope.Error.Code != "BACKUP_DISABLED" {
		t.Errorf("error = %+v", envelope.Error)
	}
}

// TestBackupAuditEmission tests that backup operations land in the audit
// trail
func TestBackupAuditEmission(t *testing.T) {
	store := audit.NewMemoryStore()
	rec := audit.NewRecorder(store)

	mgr := &mockBackupManager{
		createRecord: &backup.Record{ID: "backup_z", Status: backup.StatusCompleted, CreatedAt: time.Now()},
	}
	srv := newTestServer(t, NewHandler(mgr, nil, rec, nil, t.TempDir()))

	status, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/backups", nil)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", status)
	}

	// Close drains the recorder buffer into the store
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d events, want 1", store.Len())
	}

	events, err := store.Query(t.Context(), audit.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if events[0].Type != audit.EventBackup || events[0].ResourceID != "backup_z" {
		t.Errorf("audit event = %+v", events[0])
	}
}
