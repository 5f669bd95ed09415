// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
Package config loads the application configuration with layered sources
(Koanf v2):

 1. Defaults: built-in sensible defaults
 2. Config file: optional YAML file, found via DAFTAR_CONFIG_PATH or
    the default search paths
 3. Environment variables: DAFTAR_-prefixed, highest priority

Environment variable names map onto config paths by section:

	DAFTAR_SERVER_PORT            -> server.port
	DAFTAR_BACKUP_RETENTION_DAYS  -> backup.retention_days
	DAFTAR_BACKUP_S3_BUCKET       -> backup.s3.bucket

Config is immutable after Load and safe for concurrent reads.
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/daftarhq/daftar/internal/backup"
	"github.com/daftarhq/daftar/internal/database"
)

// ConfigPathEnvVar names the environment variable pointing at the config file
const ConfigPathEnvVar = "DAFTAR_CONFIG_PATH"

// envPrefix is stripped from environment variable names
const envPrefix = "DAFTAR_"

// DefaultConfigPaths are searched in order for a config file
var DefaultConfigPaths = []string{
	"daftar.yaml",
	"config/daftar.yaml",
	"/etc/daftar/daftar.yaml",
}

// Config is the root application configuration
type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Logging  LoggingConfig   `koanf:"logging"`
	Database database.Config `koanf:"database"`
	Backup   backup.Config   `koanf:"backup"`
	Batch    BatchConfig     `koanf:"batch"`
	Audit    AuditConfig     `koanf:"audit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	// Minimum level: trace, debug, info, warn, error
	Level string `koanf:"level"`

	// Output format: json or console
	Format string `koanf:"format"`

	// Include caller file and line
	Caller bool `koanf:"caller"`
}

// BatchConfig holds batch processing settings
type BatchConfig struct {
	// Records per processing chunk
	ChunkSize int `koanf:"chunk_size"`

	// Directory for generated templates and exports
	WorkDir string `koanf:"work_dir"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// Events older than this many days are removed by cleanup
	RetentionDays int `koanf:"retention_days"`
}

// defaultConfig returns the built-in defaults
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8484,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: database.DefaultConfig(),
		Backup:   backupDefaults(),
		Batch: BatchConfig{
			ChunkSize: 1000,
			WorkDir:   os.TempDir(),
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 365,
		},
	}
}

// backupDefaults fills in the application-level backup destination the
// package default leaves unset
func backupDefaults() backup.Config {
	cfg := backup.DefaultConfig()
	cfg.Local.Path = "/var/lib/daftar/backups"
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the whole configuration tree
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Batch.ChunkSize < 1 {
		return fmt.Errorf("batch.chunk_size must be at least 1, got: %d", c.Batch.ChunkSize)
	}
	if c.Audit.Enabled && c.Audit.RetentionDays < 1 {
		return fmt.Errorf("audit.retention_days must be at least 1, got: %d", c.Audit.RetentionDays)
	}
	if err := c.Backup.Validate(); err != nil {
		return err
	}
	return nil
}

// findConfigFile returns the first config file that exists
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// knownSubsections lists nested config sections per top-level section, so
// DAFTAR_BACKUP_S3_BUCKET maps to backup.s3.bucket rather than
// backup.s3_bucket.
var knownSubsections = map[string][]string{
	"backup": {"schedule", "datastore", "local", "s3", "ftp"},
}

// envTransform maps an environment variable name to a config path
func envTransform(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, envPrefix))
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return name
	}

	section := parts[0]
	rest := parts[1:]

	for _, sub := range knownSubsections[section] {
		if rest[0] == sub && len(rest) > 1 {
			return section + "." + sub + "." + strings.Join(rest[1:], "_")
		}
	}

	return section + "." + strings.Join(rest, "_")
}

// sliceConfigPaths are parsed as comma-separated slices when set from
// the environment
var sliceConfigPaths = []string{
	"backup.source_paths",
	"backup.exclude_patterns",
}

// processSliceFields converts comma-separated strings to slices for
// known slice fields. Values already sliced by the YAML layer pass
// through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("unexpected type %T for %s", val, path)
		}

		var parts []string
		for _, p := range strings.Split(str, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return err
		}
	}
	return nil
}
