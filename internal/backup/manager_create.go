// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
manager_create.go - Backup Job Execution

Runs one backup job end to end:

 1. Register a PENDING record, transition to IN_PROGRESS
 2. Build the artifact for the requested kind in the temp directory
 3. Encrypt the artifact when enabled (.enc suffix)
 4. Enforce the size limit
 5. Compute the artifact checksum
 6. Place the artifact at the destination
 7. Mark COMPLETED, optionally re-verify integrity
 8. Run retention cleanup

Every failure path, including panics, leaves the record in a terminal
status and removes the in-flight temp artifact. The returned record is
always terminal.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// backupIDFormat is the time layout backup identifiers are derived from
const backupIDFormat = "20060102_150405"

// CreateBackup runs one backup job of the given kind. An empty kind uses
// the configured default. Jobs are single-flight: concurrent calls block
// until the running job finishes. The returned record is always in a
// terminal status; the error classifies the failure when there is one.
func (m *Manager) CreateBackup(ctx context.Context, kind BackupKind) (rec *Record, err error) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	if kind == "" {
		kind = m.cfg.Kind
	}

	now := time.Now()
	rec = &Record{
		ID:        m.uniqueBackupID(now),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: now,
		Metadata:  map[string]string{},
	}
	m.appendRecord(rec)

	artifactPath := filepath.Join(m.cfg.TempDir, rec.ID+".tar.gz")

	// Panics inside the build are converted to a FAILED record rather than
	// tearing down the process.
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("backup_id", rec.ID).Msg("Backup job panicked")
			err = m.failBackup(rec, fmt.Errorf("%w: panic: %v", ErrBuildFailed, r), artifactPath)
		}
	}()

	m.log.Info().Str("backup_id", rec.ID).Str("kind", string(kind)).Msg("Starting backup")

	m.updateRecord(rec, func(r *Record) { r.Status = StatusInProgress })

	if err := m.buildArtifact(ctx, rec, artifactPath); err != nil {
		return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrBuildFailed, err), artifactPath)
	}

	if m.encryptor != nil {
		encPath := artifactPath + ".enc"
		if err := m.encryptor.EncryptFile(artifactPath, encPath); err != nil {
			return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrBuildFailed, err), artifactPath, encPath)
		}
		os.Remove(artifactPath) //nolint:errcheck // Plaintext superseded by encrypted artifact
		artifactPath = encPath
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrBuildFailed, err), artifactPath)
	}
	sizeMB := math.Round(float64(info.Size())/(1024*1024)*100) / 100
	m.updateRecord(rec, func(r *Record) { r.FileSizeMB = sizeMB })

	// The limit is exact: an artifact of precisely the configured size
	// passes, one byte over fails.
	if m.cfg.MaxBackupSizeMB >= 0 {
		limit := int64(m.cfg.MaxBackupSizeMB) * 1024 * 1024
		if info.Size() > limit {
			return rec, m.failBackup(rec,
				fmt.Errorf("%w: %.2f MB exceeds limit of %d MB", ErrSizeExceeded, sizeMB, m.cfg.MaxBackupSizeMB),
				artifactPath)
		}
	}

	checksum, err := ChecksumFile(artifactPath)
	if err != nil {
		return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrBuildFailed, err), artifactPath)
	}
	m.updateRecord(rec, func(r *Record) { r.Checksum = checksum })

	if m.router == nil {
		return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrDestinationFailed, m.routerErr), artifactPath)
	}
	location, err := m.router.Place(ctx, artifactPath, filepath.Base(artifactPath))
	if err != nil {
		return rec, m.failBackup(rec, fmt.Errorf("%w: %v", ErrDestinationFailed, err), artifactPath)
	}
	completed := time.Now()
	m.updateRecord(rec, func(r *Record) {
		r.FilePath = location
		r.Status = StatusCompleted
		r.CompletedAt = &completed
	})

	if m.cfg.VerifyIntegrity {
		m.verifyPlacedArtifact(rec)
	}

	m.log.Info().
		Str("backup_id", rec.ID).
		Str("status", string(rec.Status)).
		Float64("size_mb", rec.FileSizeMB).
		Str("location", rec.FilePath).
		Msg("Backup finished")

	deleted := m.CleanupOldBackups(ctx)
	if deleted > 0 {
		m.log.Info().Int("deleted", deleted).Msg("Retention cleanup removed old backups")
	}

	m.notifyComplete(rec)
	if rec.Status == StatusCorrupted {
		return rec, ErrIntegrityMismatch
	}
	return rec, nil
}

// uniqueBackupID derives a time-based identifier, disambiguating jobs
// that start within the same second.
func (m *Manager) uniqueBackupID(now time.Time) string {
	base := "backup_" + now.Format(backupIDFormat)
	id := base
	for n := 2; ; n++ {
		if _, err := m.findRecord(id); err != nil {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// buildArtifact constructs the artifact for the record's kind
func (m *Manager) buildArtifact(ctx context.Context, rec *Record, artifactPath string) error {
	switch rec.Kind {
	case KindFull:
		snapshotPath, err := m.takeSnapshot(ctx, rec.ID)
		if err != nil {
			return err
		}
		defer os.Remove(snapshotPath) //nolint:errcheck // Snapshot is folded into the archive
		sources := append([]string{snapshotPath}, m.cfg.SourcePaths...)
		return m.archiver.Build(sources, artifactPath)

	case KindDatabaseOnly:
		snapshotPath, err := m.takeSnapshot(ctx, rec.ID)
		if err != nil {
			return err
		}
		defer os.Remove(snapshotPath) //nolint:errcheck // Snapshot is folded into the archive
		return m.archiver.Build([]string{snapshotPath}, artifactPath)

	case KindFilesOnly:
		return m.archiver.Build(m.cfg.SourcePaths, artifactPath)

	case KindIncremental:
		since := m.lastBackupTime(nil)
		count, err := m.archiver.BuildIncremental(m.cfg.SourcePaths, artifactPath, since)
		if err != nil {
			return err
		}
		m.updateRecord(rec, func(r *Record) { r.Metadata["files_archived"] = strconv.Itoa(count) })
		return nil

	case KindDifferential:
		since := m.lastBackupTime(func(r *Record) bool { return r.Kind == KindFull })
		count, err := m.archiver.BuildIncremental(m.cfg.SourcePaths, artifactPath, since)
		if err != nil {
			return err
		}
		m.updateRecord(rec, func(r *Record) { r.Metadata["files_archived"] = strconv.Itoa(count) })
		return nil

	default:
		return fmt.Errorf("unknown backup kind: %s", rec.Kind)
	}
}

// takeSnapshot produces the datastore dump in the temp directory
func (m *Manager) takeSnapshot(ctx context.Context, backupID string) (string, error) {
	snapshotPath := filepath.Join(m.cfg.TempDir, backupID+".db")
	if err := m.snapshotter.Snapshot(ctx, snapshotPath); err != nil {
		return "", err
	}
	return snapshotPath, nil
}

// verifyPlacedArtifact re-reads a locally placed artifact and downgrades
// the record to CORRUPTED on checksum mismatch. Remote artifacts are
// verified during restore instead of being re-downloaded here.
func (m *Manager) verifyPlacedArtifact(rec *Record) {
	if m.cfg.Destination != DestinationLocal {
		return
	}

	actual, err := ChecksumFile(rec.FilePath)
	if err != nil || actual != rec.Checksum {
		m.log.Error().Str("backup_id", rec.ID).Msg("Backup artifact failed integrity verification")
		m.updateRecord(rec, func(r *Record) {
			r.Status = StatusCorrupted
			r.ErrorMessage = ErrIntegrityMismatch.Error()
		})
	}
}

// failBackup transitions the record to FAILED, persists it, removes the
// listed temp artifacts, and returns the classified error.
func (m *Manager) failBackup(rec *Record, cause error, tempPaths ...string) error {
	completed := time.Now()
	m.updateRecord(rec, func(r *Record) {
		r.Status = StatusFailed
		r.CompletedAt = &completed
		r.ErrorMessage = cause.Error()
	})

	for _, p := range tempPaths {
		if p != "" {
			os.Remove(p) //nolint:errcheck // Best effort cleanup
		}
	}

	m.log.Error().Err(cause).Str("backup_id", rec.ID).Msg("Backup failed")
	m.notifyComplete(rec)
	return cause
}
