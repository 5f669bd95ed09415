// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// checksumChunkSize is the read buffer size used when hashing artifacts.
// Artifacts are hashed in chunks so verification never loads a whole
// archive into memory.
const checksumChunkSize = 64 * 1024

// ChecksumFile computes the SHA-256 digest of a file, read in fixed-size
// chunks. The digest is stored on the Record when the local artifact is
// finalized and is the basis for all later integrity verification.
//
//nolint:gosec // G304: path is from internal backup storage
func ChecksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for checksum: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	hasher := sha256.New()
	buf := make([]byte, checksumChunkSize)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
