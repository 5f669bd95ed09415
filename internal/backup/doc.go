// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package backup provides backup and restore functionality for Daftar.
//
// The package implements a batch, file-based snapshot-and-archive pipeline:
// it snapshots the live datastore and/or archives a file tree, optionally
// encrypts the result, routes it to a configured destination, verifies its
// integrity end-to-end, enforces size and retention limits, and supports
// point-in-time restoration.
//
// Backup Kinds:
//
//	Full:         Datastore snapshot + file tree in one archive
//	Incremental:  Files modified since the last backup + datastore snapshot
//	Differential: Files modified since the last full backup + datastore snapshot
//	DatabaseOnly: Datastore snapshot only
//	FilesOnly:    File tree only
//
// Architecture:
//
//	┌──────────────┐     ┌──────────────────┐     ┌─────────────────┐
//	│   Scheduler  │────▶│     Manager      │────▶│   Destination   │
//	└──────────────┘     └──────────────────┘     │ (local dir, S3) │
//	                        │     │     │         └─────────────────┘
//	                        ▼     ▼     ▼
//	                 Snapshotter  Archiver  Encryptor
//	                 (DuckDB /    (tar.gz)  (AES-256-GCM)
//	                  pg_dump /
//	                  mysqldump)
//
// Lifecycle: a Record is created IN_PROGRESS when a job starts and always
// reaches a terminal status (COMPLETED, FAILED, or CORRUPTED) before
// CreateBackup returns. COMPLETED records can later be downgraded to
// CORRUPTED when post-completion verification detects a checksum mismatch;
// no other transition out of a terminal state exists.
//
// Usage:
//
//	manager, err := backup.NewManager(cfg, db)
//	manager.StartScheduler()
//
//	// Manual backup
//	record, err := manager.CreateBackup(ctx, backup.KindDatabaseOnly)
//
//	// Restore
//	err := manager.RestoreBackup(ctx, record.ID, "/restore/target")
package backup
