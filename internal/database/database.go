// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
Package database manages the embedded DuckDB datastore holding invoices,
customers, products, and transactions.

The database is a single file plus a write-ahead log. Checkpoint flushes
the WAL into the file so that file-level snapshots taken by the backup
subsystem are self-consistent.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/daftarhq/daftar/internal/logging"
)

// Config holds datastore settings
type Config struct {
	// Path to the database file
	Path string `koanf:"path"`

	// Maximum memory DuckDB may use (e.g. "512MB")
	MaxMemory string `koanf:"max_memory"`

	// Worker threads; 0 uses all CPUs
	Threads int `koanf:"threads"`
}

// DefaultConfig returns sensible datastore defaults
func DefaultConfig() Config {
	return Config{
		Path:      "data/daftar.db",
		MaxMemory: "512MB",
		Threads:   0,
	}
}

// DB wraps the DuckDB connection and provides data access methods
type DB struct {
	conn *sql.DB
	path string
}

// New opens the database file and initializes the schema
func New(cfg Config) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.initSchema(ctx); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error
		return nil, err
	}

	logging.Info().Str("path", cfg.Path).Msg("Database initialized")
	return db, nil
}

// initSchema creates the core tables if they do not exist
func (db *DB) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_invoice_id START 1`,
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			email VARCHAR NOT NULL,
			phone VARCHAR,
			address VARCHAR,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			price DECIMAL(18,2) NOT NULL,
			tax_rate DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id VARCHAR PRIMARY KEY,
			customer_id VARCHAR NOT NULL,
			amount DECIMAL(18,2) NOT NULL,
			currency VARCHAR NOT NULL DEFAULT 'USD',
			status VARCHAR NOT NULL DEFAULT 'draft',
			issued_at TIMESTAMP,
			due_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR PRIMARY KEY,
			invoice_id VARCHAR,
			amount DECIMAL(18,2) NOT NULL,
			kind VARCHAR NOT NULL,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Checkpoint flushes the WAL into the database file. FORCE CHECKPOINT
// waits for in-flight transactions instead of failing on them.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "FORCE CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// RecordCounts returns the row counts of the core tables
func (db *DB) RecordCounts(ctx context.Context) (invoices, customers int64, err error) {
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices").Scan(&invoices); err != nil {
		return 0, 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&customers); err != nil {
		return 0, 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return invoices, customers, nil
}

// Conn exposes the underlying connection pool for query layers
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
