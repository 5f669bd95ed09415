// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"context"
	"time"
)

// CleanupOldBackups deletes COMPLETED backups older than the retention
// window, removing both artifact and record, and returns how many were
// deleted. Failed, corrupted, and in-flight records are kept for
// inspection. A record whose artifact cannot be removed is skipped and
// retried on the next cleanup; the operation is idempotent.
func (m *Manager) CleanupOldBackups(ctx context.Context) int {
	cutoff := time.Now().AddDate(0, 0, -m.cfg.RetentionDays)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	deleted := 0
	for _, rec := range m.records {
		if rec.Status != StatusCompleted || !rec.CreatedAt.Before(cutoff) {
			kept = append(kept, rec)
			continue
		}

		if rec.FilePath != "" && m.router != nil {
			if err := m.router.Remove(ctx, rec.FilePath); err != nil {
				m.log.Warn().Err(err).Str("backup_id", rec.ID).Msg("Failed to remove expired backup artifact")
				kept = append(kept, rec)
				continue
			}
		}

		m.log.Debug().Str("backup_id", rec.ID).Time("created_at", rec.CreatedAt).Msg("Deleted expired backup")
		deleted++
	}

	if deleted > 0 {
		m.records = kept
		if err := m.saveMetadataLocked(); err != nil {
			m.log.Error().Err(err).Msg("Failed to persist backup metadata after cleanup")
		}
	}

	return deleted
}
