// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all backup-related configuration. It is loaded once at
// startup and never mutated during a job.
type Config struct {
	// Enable backup functionality
	Enabled bool `koanf:"enabled"`

	// Default backup kind for scheduled and unqualified manual backups
	Kind BackupKind `koanf:"kind"`

	// Destination for completed artifacts
	Destination DestinationKind `koanf:"destination"`

	// Directory for in-flight artifacts before destination placement.
	// Defaults to the system temp directory.
	TempDir string `koanf:"temp_dir"`

	// File tree roots included in full and files-only backups
	SourcePaths []string `koanf:"source_paths"`

	// Archive entries whose name contains any of these substrings are skipped
	ExcludePatterns []string `koanf:"exclude_patterns"`

	// Schedule configuration
	Schedule ScheduleConfig `koanf:"schedule"`

	// Completed backups older than this many days are deleted
	RetentionDays int `koanf:"retention_days"`

	// Enable archive compression
	Compression bool `koanf:"compression"`

	// Compression algorithm (gzip, bzip2, none). Unknown values fall back
	// to uncompressed.
	CompressionKind CompressionKind `koanf:"compression_kind"`

	// Enable artifact encryption
	Encryption bool `koanf:"encryption"`

	// Passphrase the encryption key is derived from. A random key is
	// generated when empty, which makes artifacts unrecoverable across
	// process restarts.
	EncryptionPassphrase string `koanf:"encryption_passphrase"`

	// Re-verify the artifact checksum after destination placement
	VerifyIntegrity bool `koanf:"verify_integrity"`

	// Maximum artifact size in megabytes. Artifacts over the limit fail
	// before destination placement.
	MaxBackupSizeMB int `koanf:"max_backup_size_mb"`

	// Datastore connection parameters for snapshotting
	Datastore DatastoreConfig `koanf:"datastore"`

	// Destination-specific settings
	Local LocalConfig `koanf:"local"`
	S3    S3Config    `koanf:"s3"`
	FTP   FTPConfig   `koanf:"ftp"`
}

// ScheduleConfig defines when automatic backups run
type ScheduleConfig struct {
	// Enable automatic scheduled backups
	Enabled bool `koanf:"enabled"`

	// Backup interval (24h for daily)
	Interval time.Duration `koanf:"interval"`

	// Time of day to run backups (hour in 24h format, 0-23).
	// Only used if Interval >= 24h.
	PreferredHour int `koanf:"preferred_hour"`
}

// DatastoreConfig identifies the datastore engine and how to reach it
type DatastoreConfig struct {
	// Engine family: embedded, postgres, mysql
	Engine EngineKind `koanf:"engine"`

	// Client/server engine connection parameters
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
}

// LocalConfig holds local-destination settings
type LocalConfig struct {
	// Directory completed artifacts are moved into
	Path string `koanf:"path"`
}

// S3Config holds object-storage destination settings
type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`

	// Optional custom endpoint for S3-compatible stores (MinIO, Ceph RGW)
	Endpoint string `koanf:"endpoint"`

	// Use path-style addressing (required by most S3-compatible stores)
	UsePathStyle bool `koanf:"use_path_style"`
}

// FTPConfig is declared for configuration completeness; the FTP destination
// has no implemented placement strategy.
type FTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Path     string `koanf:"path"`
}

// DefaultConfig returns a sensible default backup configuration
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Kind:            KindFull,
		Destination:     DestinationLocal,
		TempDir:         os.TempDir(),
		Schedule: ScheduleConfig{
			Enabled:       true,
			Interval:      24 * time.Hour,
			PreferredHour: 2,
		},
		RetentionDays:   30,
		Compression:     true,
		CompressionKind: CompressionGzip,
		Encryption:      false,
		VerifyIntegrity: true,
		MaxBackupSizeMB: 1000,
		Datastore: DatastoreConfig{
			Engine: EngineEmbedded,
		},
	}
}

// Validate checks that the configuration is valid
//
//nolint:gocyclo // Validation function with many sequential checks
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Kind {
	case KindFull, KindIncremental, KindDifferential, KindDatabaseOnly, KindFilesOnly:
	default:
		return fmt.Errorf("backup kind must be one of: full, incremental, differential, database_only, files_only, got: %s", c.Kind)
	}

	switch c.Destination {
	case DestinationLocal:
		if c.Local.Path == "" {
			return fmt.Errorf("backup.local.path is required for the local destination")
		}
		if !filepath.IsAbs(c.Local.Path) {
			return fmt.Errorf("backup.local.path must be an absolute path, got: %s", c.Local.Path)
		}
	case DestinationS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("backup.s3.bucket is required for the s3 destination")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("backup.s3.access_key and backup.s3.secret_key are required for the s3 destination")
		}
	case DestinationFTP, DestinationNetworkDrive:
		// Declared but unsupported; rejected at placement time, not here,
		// so that status reporting still works for such configurations.
	default:
		return fmt.Errorf("backup destination must be one of: local, s3, ftp, network_drive, got: %s", c.Destination)
	}

	if c.Schedule.Enabled {
		if c.Schedule.Interval < time.Hour {
			return fmt.Errorf("backup schedule interval must be at least 1 hour, got: %s", c.Schedule.Interval)
		}
		if c.Schedule.PreferredHour < 0 || c.Schedule.PreferredHour > 23 {
			return fmt.Errorf("backup schedule preferred_hour must be between 0 and 23, got: %d", c.Schedule.PreferredHour)
		}
	}

	if c.RetentionDays < 1 {
		return fmt.Errorf("backup retention_days must be at least 1, got: %d", c.RetentionDays)
	}

	if c.MaxBackupSizeMB < 0 {
		return fmt.Errorf("backup max_backup_size_mb must not be negative, got: %d", c.MaxBackupSizeMB)
	}

	switch c.Datastore.Engine {
	case EngineEmbedded:
	case EnginePostgres, EngineMySQL:
		if c.Datastore.Database == "" {
			return fmt.Errorf("backup.datastore.database is required for the %s engine", c.Datastore.Engine)
		}
		if c.Datastore.Username == "" {
			return fmt.Errorf("backup.datastore.username is required for the %s engine", c.Datastore.Engine)
		}
	default:
		return fmt.Errorf("backup datastore engine must be one of: embedded, postgres, mysql, got: %s", c.Datastore.Engine)
	}

	return nil
}

// EnsureDirs creates the temp and local destination directories if missing
func (c *Config) EnsureDirs() error {
	if c.TempDir != "" {
		if err := os.MkdirAll(c.TempDir, 0o750); err != nil {
			return fmt.Errorf("failed to create backup temp directory %s: %w", c.TempDir, err)
		}
	}
	if c.Destination == DestinationLocal && c.Local.Path != "" {
		if err := os.MkdirAll(c.Local.Path, 0o750); err != nil {
			return fmt.Errorf("failed to create backup directory %s: %w", c.Local.Path, err)
		}
	}
	return nil
}
