// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
manager.go - Backup Manager Core

Owns the backup record store, coordinates job execution, and persists
metadata across restarts.

Concurrency model:
  - mu guards the record slice and every record-field access; once a
    record is published into the slice, mutations go through updateRecord
  - jobMu serializes backup jobs: at most one runs at a time, concurrent
    callers block until the running job finishes
  - metadata is persisted to disk after every record mutation

Metadata lives in metadata.json next to local artifacts, or under the
temp directory when artifacts are placed remotely.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/daftarhq/daftar/internal/logging"
)

// metadataFileName is the on-disk record store file name
const metadataFileName = "metadata.json"

// Manager coordinates backup creation, restoration, retention, and scheduling
type Manager struct {
	cfg         Config
	log         zerolog.Logger
	snapshotter Snapshotter
	encryptor   *Encryptor
	archiver    *Archiver

	// router is nil when the configured destination has no placement
	// strategy; jobs then fail at the placement step.
	router    DestinationRouter
	routerErr error

	mu      sync.RWMutex
	records []*Record

	// jobMu enforces single-flight job execution
	jobMu sync.Mutex

	schedulerMu      sync.Mutex
	schedulerRunning bool
	schedulerStop    chan struct{}
	schedulerDone    chan struct{}

	// onComplete is invoked after every job reaches a terminal status
	onComplete func(*Record)
}

// NewManager creates a backup manager from validated configuration.
// db may be nil unless the embedded engine is configured.
func NewManager(cfg Config, db Database) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup configuration: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	snapshotter, err := newSnapshotter(cfg.Datastore, db)
	if err != nil {
		return nil, err
	}

	var encryptor *Encryptor
	if cfg.Encryption {
		encryptor, err = NewEncryptor(cfg.EncryptionPassphrase)
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		cfg:         cfg,
		log:         logging.With().Str("component", "backup").Logger(),
		snapshotter: snapshotter,
		encryptor:   encryptor,
		archiver: &Archiver{
			Kind:            effectiveCompression(cfg),
			ExcludePatterns: cfg.ExcludePatterns,
		},
	}

	// Unsupported destinations surface at placement time so status
	// reporting keeps working for such configurations.
	m.router, m.routerErr = newDestinationRouter(cfg)
	if m.routerErr != nil {
		m.log.Warn().Err(m.routerErr).Msg("Backup destination has no placement strategy")
	}

	if err := m.loadMetadata(); err != nil {
		return nil, err
	}

	return m, nil
}

// effectiveCompression resolves the compression toggle and kind into one value
func effectiveCompression(cfg Config) CompressionKind {
	if !cfg.Compression {
		return CompressionNone
	}
	if cfg.CompressionKind == "" {
		return CompressionGzip
	}
	return cfg.CompressionKind
}

// SetOnComplete registers a callback invoked with each record that reaches
// a terminal status. Used to feed metrics.
func (m *Manager) SetOnComplete(fn func(*Record)) {
	m.onComplete = fn
}

// metadataPath returns the record store location
func (m *Manager) metadataPath() string {
	if m.cfg.Destination == DestinationLocal && m.cfg.Local.Path != "" {
		return filepath.Join(m.cfg.Local.Path, metadataFileName)
	}
	return filepath.Join(m.cfg.TempDir, metadataFileName)
}

// loadMetadata reads the persisted record store. A missing file is a
// fresh start, not an error.
func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(m.metadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup metadata: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse backup metadata: %w", err)
	}

	m.mu.Lock()
	m.records = records
	m.mu.Unlock()

	m.log.Debug().Int("records", len(records)).Msg("Loaded backup metadata")
	return nil
}

// saveMetadataLocked persists the record store. Callers hold mu.
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}

	path := m.metadataPath()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to finalize backup metadata: %w", err)
	}
	return nil
}

// appendRecord adds a record to the store and persists it
func (m *Manager) appendRecord(rec *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if err := m.saveMetadataLocked(); err != nil {
		m.log.Error().Err(err).Str("backup_id", rec.ID).Msg("Failed to persist backup metadata")
	}
}

// updateRecord applies a mutation to a record under the store lock and
// persists the result. Every record-field write after the record is
// published into the store goes through here, so readers copying
// records under RLock never observe a torn write.
func (m *Manager) updateRecord(rec *Record, mutate func(*Record)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mutate(rec)
	if err := m.saveMetadataLocked(); err != nil {
		m.log.Error().Err(err).Str("backup_id", rec.ID).Msg("Failed to persist backup metadata")
	}
}

// findRecord returns the record with the given id, or ErrRecordNotFound
func (m *Manager) findRecord(id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// GetBackup returns a copy of the record with the given id
func (m *Manager) GetBackup(id string) (Record, error) {
	rec, err := m.findRecord(id)
	if err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return *rec, nil
}

// ListBackups returns copies of all records, newest first
func (m *Manager) ListBackups() []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, *m.records[i])
	}
	return out
}

// Status aggregates the state of the backup subsystem. Safe to call at
// any time, including while a job is running.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		TotalBackups:     len(m.records),
		SchedulerRunning: m.isSchedulerRunning(),
	}

	for _, rec := range m.records {
		switch rec.Status {
		case StatusCompleted:
			st.CompletedBackups++
			st.TotalSizeMB += rec.FileSizeMB
		case StatusFailed:
			st.FailedBackups++
		}
	}

	if len(m.records) > 0 {
		last := m.records[len(m.records)-1]
		st.LastBackup = &RecordSummary{
			ID:        last.ID,
			Status:    last.Status,
			CreatedAt: last.CreatedAt,
			SizeMB:    last.FileSizeMB,
		}
	}

	return st
}

// lastBackupTime returns the start time of the most recent backup matching
// the filter, or zero when none matches. Used for incremental and
// differential cutoffs.
func (m *Manager) lastBackupTime(filter func(*Record) bool) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last time.Time
	for _, rec := range m.records {
		if rec.Status != StatusCompleted {
			continue
		}
		if filter != nil && !filter(rec) {
			continue
		}
		if rec.CreatedAt.After(last) {
			last = rec.CreatedAt
		}
	}
	return last
}

// notifyComplete invokes the completion callback, if registered
func (m *Manager) notifyComplete(rec *Record) {
	if m.onComplete != nil {
		m.onComplete(rec)
	}
}

// Close stops the scheduler. The manager is not usable afterwards.
func (m *Manager) Close() error {
	m.StopScheduler()
	return nil
}

// IsNotFound reports whether err indicates a missing backup record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}
