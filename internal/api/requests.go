// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; validator instances cache
// struct metadata and are safe for concurrent use.
var validate = validator.New()

// CreateBackupRequest is the body for POST /backups
type CreateBackupRequest struct {
	// Kind defaults to the configured backup kind when empty
	Kind string `json:"kind" validate:"omitempty,oneof=full incremental differential database_only files_only"`
}

// RestoreBackupRequest is the body for POST /backups/{id}/restore
type RestoreBackupRequest struct {
	TargetDir string `json:"target_dir" validate:"required"`
}

// BatchImportRequest is the body for POST /batch/import
type BatchImportRequest struct {
	DataType string `json:"data_type" validate:"required,oneof=invoices customers products transactions"`
	Format   string `json:"format" validate:"required,oneof=csv json"`

	// FilePath is a server-side path to the file to import
	FilePath string `json:"file_path" validate:"required"`

	// ValidateOnly checks records without persisting them
	ValidateOnly bool `json:"validate_only"`

	ChunkSize int `json:"chunk_size" validate:"omitempty,min=1"`
}

// BatchExportRequest is the body for POST /batch/export
type BatchExportRequest struct {
	DataType string `json:"data_type" validate:"required,oneof=invoices customers products transactions"`
	Format   string `json:"format" validate:"required,oneof=csv json"`

	// FilePath is where the export is written; a path under the batch
	// work directory is generated when empty.
	FilePath string `json:"file_path"`
}

// AuditCleanupRequest is the body for POST /audit/cleanup
type AuditCleanupRequest struct {
	KeepDays int `json:"keep_days" validate:"required,min=1"`
}

// validateRequest runs struct validation and converts failures to an
// APIError. Returns nil when the request is valid.
func validateRequest(v any) *APIError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &APIError{Code: ErrCodeValidationFailed, Message: err.Error()}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Request validation failed: " + strings.Join(fields, "; "),
	}
}
