// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestLoadDefaults tests that Load without file or env produces defaults
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8484 {
		t.Errorf("server.port = %d, want 8484", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Database.Path != "data/daftar.db" {
		t.Errorf("database.path = %s, want data/daftar.db", cfg.Database.Path)
	}
	if cfg.Batch.ChunkSize != 1000 {
		t.Errorf("batch.chunk_size = %d, want 1000", cfg.Batch.ChunkSize)
	}
	if !cfg.Audit.Enabled {
		t.Error("audit should be enabled by default")
	}
}

// TestLoadEnvOverride tests that environment variables win over defaults
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DAFTAR_SERVER_PORT", "9090")
	t.Setenv("DAFTAR_LOGGING_LEVEL", "debug")
	t.Setenv("DAFTAR_BACKUP_RETENTION_DAYS", "7")
	t.Setenv("DAFTAR_BACKUP_S3_BUCKET", "daftar-backups")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("backup.retention_days = %d, want 7", cfg.Backup.RetentionDays)
	}
	if cfg.Backup.S3.Bucket != "daftar-backups" {
		t.Errorf("backup.s3.bucket = %s, want daftar-backups", cfg.Backup.S3.Bucket)
	}
}

// TestLoadConfigFile tests YAML file layering via DAFTAR_CONFIG_PATH
func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daftar.yaml")
	content := `server:
  port: 7171
backup:
  retention_days: 14
  source_paths:
    - /var/lib/daftar/uploads
    - /var/lib/daftar/receipts
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 7171 {
		t.Errorf("server.port = %d, want 7171", cfg.Server.Port)
	}
	if cfg.Backup.RetentionDays != 14 {
		t.Errorf("backup.retention_days = %d, want 14", cfg.Backup.RetentionDays)
	}
	want := []string{"/var/lib/daftar/uploads", "/var/lib/daftar/receipts"}
	if !reflect.DeepEqual(cfg.Backup.SourcePaths, want) {
		t.Errorf("backup.source_paths = %v, want %v", cfg.Backup.SourcePaths, want)
	}
}

// TestLoadEnvWinsOverFile tests source precedence
func TestLoadEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daftar.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7171\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("DAFTAR_SERVER_PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Errorf("server.port = %d, want env override 6060", cfg.Server.Port)
	}
}

// TestLoadSliceFromEnv tests comma-separated slice parsing
func TestLoadSliceFromEnv(t *testing.T) {
	t.Setenv("DAFTAR_BACKUP_SOURCE_PATHS", "/a, /b ,/c")
	t.Setenv("DAFTAR_BACKUP_EXCLUDE_PATTERNS", "*.tmp,*.log")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(cfg.Backup.SourcePaths, []string{"/a", "/b", "/c"}) {
		t.Errorf("backup.source_paths = %v", cfg.Backup.SourcePaths)
	}
	if !reflect.DeepEqual(cfg.Backup.ExcludePatterns, []string{"*.tmp", "*.log"}) {
		t.Errorf("backup.exclude_patterns = %v", cfg.Backup.ExcludePatterns)
	}
}

// TestEnvTransform tests the env-name-to-path mapping
func TestEnvTransform(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{"simple", "DAFTAR_SERVER_PORT", "server.port"},
		{"multi word", "DAFTAR_BACKUP_RETENTION_DAYS", "backup.retention_days"},
		{"known subsection", "DAFTAR_BACKUP_S3_BUCKET", "backup.s3.bucket"},
		{"subsection multi word", "DAFTAR_BACKUP_SCHEDULE_PREFERRED_HOUR", "backup.schedule.preferred_hour"},
		{"datastore", "DAFTAR_BACKUP_DATASTORE_ENGINE", "backup.datastore.engine"},
		{"single token", "DAFTAR_DEBUG", "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := envTransform(tt.env); got != tt.want {
				t.Errorf("envTransform(%s) = %s, want %s", tt.env, got, tt.want)
			}
		})
	}
}

// TestValidate tests rejection of invalid configurations
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad port low", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad port high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, true},
		{"bad chunk size", func(c *Config) { c.Batch.ChunkSize = 0 }, true},
		{"bad audit retention", func(c *Config) { c.Audit.RetentionDays = 0 }, true},
		{"audit disabled skips retention", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.RetentionDays = 0
		}, false},
		{"bad backup config", func(c *Config) { c.Backup.RetentionDays = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}
