// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package api exposes the HTTP surface of Daftar: backup lifecycle,
// batch import/export, audit queries, health, and metrics. All
// endpoints share one response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/daftarhq/daftar/internal/logging"
)

// APIResponse is the envelope every endpoint responds with
type APIResponse struct {
	// Status is "success" or "error"
	Status string `json:"status"`

	// Data carries the payload, absent on errors
	Data any `json:"data,omitempty"`

	// Error carries failure details, absent on success
	Error *APIError `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// APIError is a machine-readable error body
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes shared across handlers
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// respondJSON writes the envelope with the given status code
func respondJSON(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess writes a success envelope around data
func respondSuccess(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, &APIResponse{
		Status:    "success",
		Data:      data,
		Timestamp: time.Now(),
	})
}

// respondError writes an error envelope. err is logged, not exposed
// beyond its message.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}

	respondJSON(w, status, &APIResponse{
		Status:    "error",
		Timestamp: time.Now(),
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}
