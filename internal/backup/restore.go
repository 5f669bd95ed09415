// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
restore.go - Backup Restoration

Restores a backup artifact into a target directory:

 1. Look up the record; unknown ids and non-COMPLETED records are refused
 2. Fetch the artifact to the temp directory when it is remote
 3. Verify the artifact checksum against the record; mismatch refuses
    the restore before any data is written
 4. Decrypt when the artifact carries the .enc suffix
 5. Extract the archive into the target directory

Restore fails fast: the first error aborts and nothing is rolled back,
so the caller restores into an empty staging directory.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RestoreBackup restores the identified backup into targetDir
func (m *Manager) RestoreBackup(ctx context.Context, id, targetDir string) error {
	rec, err := m.findRecord(id)
	if err != nil {
		return err
	}

	m.mu.RLock()
	status := rec.Status
	location := rec.FilePath
	checksum := rec.Checksum
	m.mu.RUnlock()

	if status != StatusCompleted {
		return fmt.Errorf("cannot restore backup %s with status %s", id, status)
	}

	m.log.Info().Str("backup_id", id).Str("target", targetDir).Msg("Starting restore")

	artifactPath := location
	if strings.HasPrefix(location, "s3://") {
		if m.router == nil {
			return fmt.Errorf("%w: %v", ErrDestinationFailed, m.routerErr)
		}
		artifactPath = filepath.Join(m.cfg.TempDir, id+".fetched")
		if err := m.router.Fetch(ctx, location, artifactPath); err != nil {
			return fmt.Errorf("failed to fetch backup artifact: %w", err)
		}
		defer os.Remove(artifactPath) //nolint:errcheck // Best effort cleanup
	}

	actual, err := ChecksumFile(artifactPath)
	if err != nil {
		return fmt.Errorf("failed to verify backup artifact: %w", err)
	}
	if actual != checksum {
		return fmt.Errorf("%w: backup %s", ErrIntegrityMismatch, id)
	}

	// The .enc suffix on the stored location decides the decryption branch
	if strings.HasSuffix(location, ".enc") {
		if m.encryptor == nil {
			return fmt.Errorf("backup %s is encrypted but encryption is not configured", id)
		}
		decPath := filepath.Join(m.cfg.TempDir, id+".decrypted")
		if err := m.encryptor.DecryptFile(artifactPath, decPath); err != nil {
			return err
		}
		defer os.Remove(decPath) //nolint:errcheck // Best effort cleanup
		artifactPath = decPath
	}

	if err := extractArchive(artifactPath, targetDir); err != nil {
		return fmt.Errorf("failed to extract backup %s: %w", id, err)
	}

	m.log.Info().Str("backup_id", id).Str("target", targetDir).Msg("Restore finished")
	return nil
}
