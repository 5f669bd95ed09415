// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// seedRecord registers a record with a backing artifact file
func seedRecord(t *testing.T, mgr *Manager, id string, status BackupStatus, age time.Duration) *Record {
	t.Helper()

	artifactPath := filepath.Join(mgr.cfg.Local.Path, id+".tar.gz")
	if err := os.WriteFile(artifactPath, []byte("artifact"), 0o600); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	rec := &Record{
		ID:        id,
		Kind:      KindFilesOnly,
		Status:    status,
		CreatedAt: time.Now().Add(-age),
		FilePath:  artifactPath,
	}
	mgr.appendRecord(rec)
	return rec
}

// TestCleanupDeletesExpiredCompleted tests deletion of completed backups
// past the retention window
func TestCleanupDeletesExpiredCompleted(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.RetentionDays = 7
	})

	expired := seedRecord(t, mgr, "backup_20260101_020000", StatusCompleted, 10*24*time.Hour)
	recent := seedRecord(t, mgr, "backup_20260820_020000", StatusCompleted, 2*24*time.Hour)

	deleted := mgr.CleanupOldBackups(context.Background())
	if deleted != 1 {
		t.Fatalf("deleted %d backups, want 1", deleted)
	}

	if _, err := os.Stat(expired.FilePath); !os.IsNotExist(err) {
		t.Error("expired artifact should be removed")
	}
	if _, err := os.Stat(recent.FilePath); err != nil {
		t.Errorf("recent artifact should remain: %v", err)
	}

	if _, err := mgr.GetBackup(expired.ID); err == nil {
		t.Error("expired record should be removed")
	}
	if _, err := mgr.GetBackup(recent.ID); err != nil {
		t.Errorf("recent record should remain: %v", err)
	}
}

// TestCleanupKeepsFailedRecords tests that non-completed records are kept
// for inspection regardless of age
func TestCleanupKeepsFailedRecords(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.RetentionDays = 1
	})

	failed := seedRecord(t, mgr, "backup_20250101_020000", StatusFailed, 400*24*time.Hour)
	corrupted := seedRecord(t, mgr, "backup_20250102_020000", StatusCorrupted, 400*24*time.Hour)

	if deleted := mgr.CleanupOldBackups(context.Background()); deleted != 0 {
		t.Errorf("deleted %d backups, want 0", deleted)
	}
	if _, err := mgr.GetBackup(failed.ID); err != nil {
		t.Errorf("failed record should remain: %v", err)
	}
	if _, err := mgr.GetBackup(corrupted.ID); err != nil {
		t.Errorf("corrupted record should remain: %v", err)
	}
}

// TestCleanupIdempotent tests that a second cleanup deletes nothing
func TestCleanupIdempotent(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.RetentionDays = 7
	})

	seedRecord(t, mgr, "backup_20260101_020000", StatusCompleted, 30*24*time.Hour)

	if deleted := mgr.CleanupOldBackups(context.Background()); deleted != 1 {
		t.Fatalf("first cleanup deleted %d, want 1", deleted)
	}
	if deleted := mgr.CleanupOldBackups(context.Background()); deleted != 0 {
		t.Errorf("second cleanup deleted %d, want 0", deleted)
	}
}

// TestCleanupToleratesMissingArtifact tests that a record whose artifact
// is already gone is still cleaned up
func TestCleanupToleratesMissingArtifact(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.RetentionDays = 7
	})

	rec := seedRecord(t, mgr, "backup_20260101_020000", StatusCompleted, 30*24*time.Hour)
	if err := os.Remove(rec.FilePath); err != nil {
		t.Fatalf("failed to remove artifact: %v", err)
	}

	if deleted := mgr.CleanupOldBackups(context.Background()); deleted != 1 {
		t.Errorf("deleted %d backups, want 1", deleted)
	}
	if _, err := mgr.GetBackup(rec.ID); err == nil {
		t.Error("record with missing artifact should still be deleted")
	}
}

// TestCleanupBoundary tests that a record exactly at the window edge is kept
func TestCleanupBoundary(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.RetentionDays = 7
	})

	// A minute inside the window
	inside := seedRecord(t, mgr, "backup_20260816_020000", StatusCompleted, 7*24*time.Hour-time.Minute)

	if deleted := mgr.CleanupOldBackups(context.Background()); deleted != 0 {
		t.Errorf("deleted %d backups, want 0", deleted)
	}
	if _, err := mgr.GetBackup(inside.ID); err != nil {
		t.Errorf("record inside the window should remain: %v", err)
	}
}
