// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Encryption Algorithm:
//   - AES-256-GCM (authenticated encryption)
//   - 12-byte random nonce per encryption, prepended to the ciphertext
//   - Key derived from the configured passphrase using HKDF-SHA256,
//     or generated randomly when no passphrase is configured
//
// Encryption is whole-file: the plaintext is read fully into memory,
// sealed, and written out. This bounds practical artifact size; the
// configured size limit keeps artifacts within memory reach.

package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

const (
	// artifactEncryptionSalt binds derived keys to artifact encryption
	artifactEncryptionSalt = "daftar-backup-artifacts"

	// artifactEncryptionInfo is the HKDF info parameter for key derivation
	artifactEncryptionInfo = "artifact-encryption-v1"

	// aesKeySize is the AES key size in bytes (256 bits)
	aesKeySize = 32
)

// Encryptor wraps and unwraps backup artifacts with a symmetric key held
// for the manager's lifetime.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an Encryptor. The key is derived from the passphrase
// with HKDF-SHA256; when the passphrase is empty a random key is generated,
// which makes artifacts unrecoverable after a process restart.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	var key []byte
	if passphrase != "" {
		key = make([]byte, aesKeySize)
		kdf := hkdf.New(sha256.New, []byte(passphrase), []byte(artifactEncryptionSalt), []byte(artifactEncryptionInfo))
		if _, err := io.ReadFull(kdf, key); err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
	} else {
		key = make([]byte, aesKeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate encryption key: %w", err)
		}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{aead: gcm}, nil
}

// EncryptFile reads inPath fully, seals it, and writes nonce||ciphertext
// to outPath.
//
//nolint:gosec // G304: paths are from internal backup configuration
func (e *Encryptor) EncryptFile(inPath, outPath string) error {
	plaintext, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.aead.Seal(nonce, nonce, plaintext, nil)

	if err := os.WriteFile(outPath, ciphertext, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted file %s: %w", outPath, err)
	}

	return nil
}

// DecryptFile is the inverse of EncryptFile. It fails without writing any
// output when the ciphertext is malformed or the key does not match; this
// is the only place tampering is detected before checksum comparison.
//
//nolint:gosec // G304: paths are from internal backup storage
func (e *Encryptor) DecryptFile(inPath, outPath string) error {
	ciphertext, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inPath, err)
	}

	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return ErrDecryptionFailed
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ErrDecryptionFailed
	}

	if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("failed to write decrypted file %s: %w", outPath, err)
	}

	return nil
}
