// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
snapshot.go - Datastore Snapshotting

Produces a point-in-time dump of the datastore for inclusion in backup
archives. Three engine families are supported:

	embedded:  checkpoint the DuckDB database, then copy its file
	postgres:  pg_dump in custom format, password via PGPASSWORD
	mysql:     mysqldump with --single-transaction

Dump tools write to stdout, which is streamed to the snapshot file.
stderr is captured and surfaced in the error on non-zero exit.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Database is the embedded datastore surface the backup subsystem needs.
// Checkpoint must flush the WAL so the file copy is self-consistent.
type Database interface {
	Path() string
	Checkpoint(ctx context.Context) error
}

// Snapshotter produces a datastore dump at the given path
type Snapshotter interface {
	Snapshot(ctx context.Context, destPath string) error
}

// newSnapshotter selects the snapshotter for the configured engine.
// The embedded engine requires a non-nil database handle.
func newSnapshotter(cfg DatastoreConfig, db Database) (Snapshotter, error) {
	switch cfg.Engine {
	case EngineEmbedded:
		if db == nil {
			return nil, fmt.Errorf("embedded engine requires a database handle")
		}
		return &EmbeddedSnapshotter{db: db}, nil
	case EnginePostgres:
		return &PostgresSnapshotter{cfg: cfg}, nil
	case EngineMySQL:
		return &MySQLSnapshotter{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown datastore engine: %s", cfg.Engine)
	}
}

// EmbeddedSnapshotter snapshots the embedded DuckDB database by forcing a
// checkpoint and copying the database file.
type EmbeddedSnapshotter struct {
	db Database
}

// Snapshot checkpoints the database and copies its file to destPath
func (s *EmbeddedSnapshotter) Snapshot(ctx context.Context, destPath string) error {
	if err := s.db.Checkpoint(ctx); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	if err := copyFile(s.db.Path(), destPath); err != nil {
		return fmt.Errorf("failed to copy database file: %w", err)
	}
	return nil
}

// PostgresSnapshotter dumps a PostgreSQL database via pg_dump
type PostgresSnapshotter struct {
	cfg DatastoreConfig
}

// Snapshot runs pg_dump, writing the custom-format dump to destPath
func (s *PostgresSnapshotter) Snapshot(ctx context.Context, destPath string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", pgDumpArgs(s.cfg)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+s.cfg.Password)
	return runDumpCommand(cmd, destPath)
}

// pgDumpArgs builds the pg_dump argument list for the given connection
func pgDumpArgs(cfg DatastoreConfig) []string {
	args := []string{
		"--format=custom",
		"--no-password",
		"--username=" + cfg.Username,
		"--dbname=" + cfg.Database,
	}
	if cfg.Host != "" {
		args = append(args, "--host="+cfg.Host)
	}
	if cfg.Port > 0 {
		args = append(args, "--port="+strconv.Itoa(cfg.Port))
	}
	return args
}

// MySQLSnapshotter dumps a MySQL database via mysqldump
type MySQLSnapshotter struct {
	cfg DatastoreConfig
}

// Snapshot runs mysqldump, writing the SQL dump to destPath
func (s *MySQLSnapshotter) Snapshot(ctx context.Context, destPath string) error {
	cmd := exec.CommandContext(ctx, "mysqldump", mysqldumpArgs(s.cfg)...)
	if s.cfg.Password != "" {
		cmd.Env = append(os.Environ(), "MYSQL_PWD="+s.cfg.Password)
	}
	return runDumpCommand(cmd, destPath)
}

// mysqldumpArgs builds the mysqldump argument list for the given connection
func mysqldumpArgs(cfg DatastoreConfig) []string {
	args := []string{
		"--single-transaction",
		"--user=" + cfg.Username,
	}
	if cfg.Host != "" {
		args = append(args, "--host="+cfg.Host)
	}
	if cfg.Port > 0 {
		args = append(args, "--port="+strconv.Itoa(cfg.Port))
	}
	args = append(args, cfg.Database)
	return args
}

// runDumpCommand streams the command's stdout to destPath and surfaces
// captured stderr in the error on failure. The partial dump file is
// removed when the tool exits non-zero.
//
//nolint:gosec // G304: destPath is an internal temp path
func runDumpCommand(cmd *exec.Cmd, destPath string) error {
	outFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", destPath, err)
	}

	var stderr bytes.Buffer
	cmd.Stdout = outFile
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	closeErr := outFile.Close()

	if runErr != nil {
		os.Remove(destPath) //nolint:errcheck // Best effort cleanup
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s failed: %w: %s", cmd.Path, runErr, msg)
		}
		return fmt.Errorf("%s failed: %w", cmd.Path, runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize snapshot file %s: %w", destPath, closeErr)
	}

	return nil
}

// copyFile copies src to dst, creating or truncating dst with 0600 permissions
//
//nolint:gosec // G304: paths are internal
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close() //nolint:errcheck // Best effort cleanup

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	return out.Close()
}
