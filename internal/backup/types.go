// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"errors"
	"time"
)

// BackupKind defines the kind of backup to create
type BackupKind string

const (
	// KindFull combines a datastore snapshot and the file tree in one archive
	KindFull BackupKind = "full"

	// KindIncremental archives files modified since the last backup
	KindIncremental BackupKind = "incremental"

	// KindDifferential archives files modified since the last full backup
	KindDifferential BackupKind = "differential"

	// KindDatabaseOnly snapshots the datastore only
	KindDatabaseOnly BackupKind = "database_only"

	// KindFilesOnly archives the file tree only
	KindFilesOnly BackupKind = "files_only"
)

// BackupStatus represents the current state of a backup job
type BackupStatus string

const (
	// StatusPending indicates the backup is queued but not started
	StatusPending BackupStatus = "pending"

	// StatusInProgress indicates the backup is currently running
	StatusInProgress BackupStatus = "in_progress"

	// StatusCompleted indicates the backup finished successfully
	StatusCompleted BackupStatus = "completed"

	// StatusFailed indicates the backup failed
	StatusFailed BackupStatus = "failed"

	// StatusCorrupted indicates post-completion verification detected a
	// checksum mismatch
	StatusCorrupted BackupStatus = "corrupted"
)

// IsTerminal reports whether the status is a terminal state.
// CORRUPTED is the only permitted transition out of COMPLETED.
func (s BackupStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCorrupted
}

// DestinationKind defines where completed artifacts are placed
type DestinationKind string

const (
	// DestinationLocal moves artifacts into a local directory
	DestinationLocal DestinationKind = "local"

	// DestinationS3 uploads artifacts to an S3-compatible bucket
	DestinationS3 DestinationKind = "s3"

	// DestinationFTP is declared in configuration but has no implemented
	// placement strategy
	DestinationFTP DestinationKind = "ftp"

	// DestinationNetworkDrive is declared in configuration but has no
	// implemented placement strategy
	DestinationNetworkDrive DestinationKind = "network_drive"
)

// CompressionKind selects the archive compression algorithm
type CompressionKind string

const (
	// CompressionGzip compresses archives with gzip (default)
	CompressionGzip CompressionKind = "gzip"

	// CompressionBzip2 compresses archives with bzip2
	CompressionBzip2 CompressionKind = "bzip2"

	// CompressionNone produces plain tar archives
	CompressionNone CompressionKind = "none"
)

// EngineKind identifies the datastore engine family for snapshotting
type EngineKind string

const (
	// EngineEmbedded snapshots the embedded DuckDB database by
	// checkpointing and copying the database file
	EngineEmbedded EngineKind = "embedded"

	// EnginePostgres snapshots a PostgreSQL server via pg_dump
	EnginePostgres EngineKind = "postgres"

	// EngineMySQL snapshots a MySQL server via mysqldump
	EngineMySQL EngineKind = "mysql"
)

// Failure taxonomy. Every failure inside CreateBackup is absorbed into the
// returned record's status and error message; these sentinels classify the
// cause for callers that inspect the error chain.
var (
	// ErrBuildFailed indicates the snapshot or archive step failed
	ErrBuildFailed = errors.New("backup creation failed")

	// ErrSizeExceeded indicates the artifact exceeded the configured size limit
	ErrSizeExceeded = errors.New("backup size exceeds limit")

	// ErrDestinationFailed indicates the artifact could not be placed at its destination
	ErrDestinationFailed = errors.New("failed to move backup to destination")

	// ErrIntegrityMismatch indicates a checksum comparison failed
	ErrIntegrityMismatch = errors.New("backup integrity verification failed")

	// ErrDecryptionFailed indicates a key mismatch or corrupt ciphertext
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or authentication tag")

	// ErrUnsupportedDestination indicates the configured destination kind has
	// no placement strategy
	ErrUnsupportedDestination = errors.New("unsupported backup destination")

	// ErrRecordNotFound indicates no backup record exists for the given id
	ErrRecordNotFound = errors.New("backup record not found")
)

// Record is the metadata of one backup job. Checksum and FilePath are set
// only after the artifact reaches its final destination; status transitions
// are monotonic and never leave a terminal state except the documented
// COMPLETED to CORRUPTED downgrade.
type Record struct {
	// Time-derived identifier (backup_20060102_150405)
	ID string `json:"id"`

	// Kind of backup
	Kind BackupKind `json:"kind"`

	// Current lifecycle status
	Status BackupStatus `json:"status"`

	// When the job started
	CreatedAt time.Time `json:"created_at"`

	// When the job reached a terminal status
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Final artifact location (local path or s3://bucket/key)
	FilePath string `json:"file_path"`

	// Artifact size in megabytes
	FileSizeMB float64 `json:"file_size_mb"`

	// SHA-256 checksum of the artifact
	Checksum string `json:"checksum"`

	// Error message if the job failed
	ErrorMessage string `json:"error_message,omitempty"`

	// Free-form metadata
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RecordSummary is the condensed form of the most recent backup,
// returned as part of Status.
type RecordSummary struct {
	ID        string       `json:"id"`
	Status    BackupStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	SizeMB    float64      `json:"size_mb"`
}

// Status aggregates the state of the backup subsystem
type Status struct {
	TotalBackups     int            `json:"total_backups"`
	CompletedBackups int            `json:"completed_backups"`
	FailedBackups    int            `json:"failed_backups"`
	TotalSizeMB      float64        `json:"total_size_mb"`
	LastBackup       *RecordSummary `json:"last_backup,omitempty"`
	SchedulerRunning bool           `json:"scheduler_running"`
}
