// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig tunes cross-cutting HTTP behavior
type RouterConfig struct {
	// CORSAllowedOrigins is empty by default, requiring explicit
	// configuration before browsers may call the API cross-origin
	CORSAllowedOrigins []string

	// Per-IP request budget; zero disables rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultRouterConfig returns conservative router defaults
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter assembles the full route tree over the given handler
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-User-Name"},
		MaxAge:         86400,
	}))

	r.Get("/healthz", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Use(metricsMiddleware)

		r.Route("/backups", func(r chi.Router) {
			r.Post("/", h.HandleCreateBackup)
			r.Get("/", h.HandleListBackups)
			r.Get("/status", h.HandleBackupStatus)
			r.Post("/cleanup", h.HandleBackupCleanup)
			r.Get("/{id}", h.HandleGetBackup)
			r.Post("/{id}/restore", h.HandleRestoreBackup)
		})

		r.Route("/batch", func(r chi.Router) {
			r.Post("/import", h.HandleBatchImport)
			r.Post("/export", h.HandleBatchExport)
			r.Get("/template", h.HandleBatchTemplate)
			r.Get("/jobs", h.HandleListBatchJobs)
			r.Get("/jobs/{id}", h.HandleGetBatchJob)
			r.Post("/jobs/{id}/cancel", h.HandleCancelBatchJob)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/user-activity", h.HandleAuditUserActivity)
			r.Get("/resource-history", h.HandleAuditResourceHistory)
			r.Get("/security-events", h.HandleAuditSecurityEvents)
			r.Get("/failed-operations", h.HandleAuditFailedOperations)
			r.Get("/report", h.HandleAuditReport)
			r.Post("/cleanup", h.HandleAuditCleanup)
		})
	})

	return r
}
