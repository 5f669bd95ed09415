// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/backup"
	"github.com/daftarhq/daftar/internal/batch"
)

// mockBackupManager is a scriptable BackupManager
type mockBackupManager struct {
	createRecord *backup.Record
	createErr    error
	restoreErr   error
	records      []backup.Record
	status       backup.Status
	cleaned      int

	lastKind      backup.BackupKind
	lastRestoreID string
}

func (m *mockBackupManager) CreateBackup(_ context.Context, kind backup.BackupKind) (*backup.Record, error) {
	m.lastKind = kind
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createRecord, nil
}

func (m *mockBackupManager) RestoreBackup(_ context.Context, id, _ string) error {
	m.lastRestoreID = id
	return m.restoreErr
}

func (m *mockBackupManager) GetBackup(id string) (backup.Record, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return backup.Record{}, backup.ErrRecordNotFound
}

func (m *mockBackupManager) ListBackups() []backup.Record {
	return m.records
}

func (m *mockBackupManager) Status() backup.Status {
	return m.status
}

func (m *mockBackupManager) CleanupOldBackups(_ context.Context) int {
	return m.cleaned
}

// memStore is an in-memory batch.Store
type memStore struct {
	mu       sync.Mutex
	saved    map[batch.DataType][]batch.Record
	saveErr  error
	fetchErr error
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[batch.DataType][]batch.Record)}
}

func (s *memStore) SaveRecord(_ context.Context, dataType batch.DataType, rec batch.Record) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[dataType] = append(s.saved[dataType], rec)
	return nil
}

func (s *memStore) FetchRecords(_ context.Context, dataType batch.DataType) ([]batch.Record, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[dataType], nil
}

func (s *memStore) count(dataType batch.DataType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved[dataType])
}

// newTestServer builds a full router over the given handler with rate
// limiting disabled
func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(h, RouterConfig{}))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request with an optional JSON body and decodes the
// response envelope
func doJSON(t *testing.T, method, url string, body any) (int, APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Test cleanup

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return resp.StatusCode, envelope
}

// dataMap extracts the envelope data as a map
func dataMap(t *testing.T, envelope APIResponse) map[string]any {
	t.Helper()
	m, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("response data is %T, want object", envelope.Data)
	}
	return m
}
