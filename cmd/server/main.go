// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package main is the entry point for the Daftar server.
//
// Daftar is a self-hosted invoicing and accounting platform. This binary
// wires together its operational subsystems:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML file,
//     DAFTAR_-prefixed environment variables)
//  2. Database: embedded DuckDB holding invoices, customers, products,
//     and transactions
//  3. Audit trail: checksummed event recording for every sensitive
//     operation
//  4. Backup manager: scheduled full/incremental/differential backups
//     with encryption, integrity verification, and retention
//  5. Batch processor: bulk CSV/JSON import and export of business
//     records
//  6. HTTP server: REST API plus /healthz and Prometheus /metrics
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests up to the
// configured shutdown timeout, stops the backup scheduler, drains the
// audit recorder, and closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/daftarhq/daftar/internal/api"
	"github.com/daftarhq/daftar/internal/audit"
	"github.com/daftarhq/daftar/internal/backup"
	"github.com/daftarhq/daftar/internal/batch"
	"github.com/daftarhq/daftar/internal/config"
	"github.com/daftarhq/daftar/internal/database"
	"github.com/daftarhq/daftar/internal/logging"
	"github.com/daftarhq/daftar/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, use the default logger
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("backups_enabled", cfg.Backup.Enabled).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Msg("Starting Daftar")

	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		recorder = audit.NewRecorder(audit.NewMemoryStore())
		defer func() {
			if err := recorder.Close(); err != nil {
				logging.Error().Err(err).Msg("Error draining audit recorder")
			}
		}()
	}

	var backupManager *backup.Manager
	if cfg.Backup.Enabled {
		backupManager, err = backup.NewManager(cfg.Backup, db)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize backup manager")
		}
		backupManager.SetOnComplete(observeBackup)
		backupManager.StartScheduler()
		defer func() {
			if err := backupManager.Close(); err != nil {
				logging.Error().Err(err).Msg("Error stopping backup manager")
			}
		}()
		logging.Info().
			Str("kind", string(cfg.Backup.Kind)).
			Str("destination", string(cfg.Backup.Destination)).
			Msg("Backup manager started")
	}

	processor := batch.NewProcessor(batch.NewSQLStore(db.Conn()))

	handler := api.NewHandler(managerOrNil(backupManager), processor, recorderOrNil(recorder), db, cfg.Batch.WorkDir)
	routerCfg := api.DefaultRouterConfig()
	router := api.NewRouter(handler, routerCfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Info().Msg("Daftar stopped")
}

// observeBackup feeds terminal backup records into Prometheus
func observeBackup(rec *backup.Record) {
	var duration time.Duration
	if rec.CompletedAt != nil {
		duration = rec.CompletedAt.Sub(rec.CreatedAt)
	}
	metrics.ObserveBackup(string(rec.Kind), string(rec.Status), rec.FileSizeMB, duration,
		rec.Status == backup.StatusCompleted)
}

// managerOrNil avoids handing the API a typed nil interface value
func managerOrNil(m *backup.Manager) api.BackupManager {
	if m == nil {
		return nil
	}
	return m
}

// recorderOrNil avoids handing the API a typed nil interface value
func recorderOrNil(r *audit.Recorder) api.AuditRecorder {
	if r == nil {
		return nil
	}
	return r
}
