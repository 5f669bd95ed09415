// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package metrics exposes Prometheus instrumentation for the backup,
// batch, and HTTP subsystems.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backup metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daftar_backups_total",
			Help: "Total number of finished backup jobs by kind and status",
		},
		[]string{"kind", "status"},
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "daftar_backup_duration_seconds",
			Help:    "Duration of backup jobs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	BackupLastSizeMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "daftar_backup_last_size_megabytes",
			Help: "Artifact size of the most recent completed backup",
		},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "daftar_backup_last_success_timestamp_seconds",
			Help: "Unix time of the most recent completed backup",
		},
	)

	BackupRetentionDeletions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daftar_backup_retention_deletions_total",
			Help: "Total number of backups removed by retention cleanup",
		},
	)

	// Batch metrics
	BatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daftar_batch_jobs_total",
			Help: "Total number of finished batch jobs by operation and status",
		},
		[]string{"operation", "status"},
	)

	BatchRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daftar_batch_records_total",
			Help: "Total number of batch records by outcome",
		},
		[]string{"outcome"}, // "succeeded" or "failed"
	)

	// Audit metrics
	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "daftar_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to a full buffer",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daftar_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveBackup records one finished backup job
func ObserveBackup(kind, status string, sizeMB float64, duration time.Duration, completed bool) {
	BackupsTotal.WithLabelValues(kind, status).Inc()
	BackupDuration.Observe(duration.Seconds())
	if completed {
		BackupLastSizeMB.Set(sizeMB)
		BackupLastSuccess.SetToCurrentTime()
	}
}

// ObserveBatchJob records one finished batch job
func ObserveBatchJob(operation, status string, succeeded, failed int) {
	BatchJobsTotal.WithLabelValues(operation, status).Inc()
	BatchRecordsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	BatchRecordsTotal.WithLabelValues("failed").Add(float64(failed))
}

// ObserveHTTPRequest records one served HTTP request
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
