// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package batch implements bulk import, export, and validation of
// business records (invoices, customers, products, transactions) from
// and to CSV and JSON files.
//
// Work is organized as jobs: a job is created, then driven through an
// import or export run, and ends in a terminal status with a result
// summarizing per-record outcomes. Records failing validation are
// collected, not fatal; a run where some records succeed and some fail
// ends as partial success.
package batch

import (
	"errors"
	"time"
)

// Operation is the kind of work a batch job performs
type Operation string

const (
	// OpImport loads records from a file into the datastore
	OpImport Operation = "import"

	// OpExport writes datastore records to a file
	OpExport Operation = "export"

	// OpValidate checks records from a file without persisting them
	OpValidate Operation = "validate"
)

// Status is the lifecycle state of a batch job
type Status string

const (
	// StatusPending indicates the job is created but not started
	StatusPending Status = "pending"

	// StatusProcessing indicates the job is running
	StatusProcessing Status = "processing"

	// StatusCompleted indicates every record processed successfully
	StatusCompleted Status = "completed"

	// StatusFailed indicates no record processed successfully
	StatusFailed Status = "failed"

	// StatusCancelled indicates the job was cancelled before finishing
	StatusCancelled Status = "cancelled"

	// StatusPartialSuccess indicates some records succeeded and some failed
	StatusPartialSuccess Status = "partial_success"
)

// IsTerminal reports whether the status is a terminal state
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusPartialSuccess:
		return true
	default:
		return false
	}
}

// DataType identifies the record family a job operates on
type DataType string

const (
	DataInvoices     DataType = "invoices"
	DataCustomers    DataType = "customers"
	DataProducts     DataType = "products"
	DataTransactions DataType = "transactions"
)

// Format identifies a file format for import and export
type Format string

const (
	// FormatCSV is comma-separated values with a header row
	FormatCSV Format = "csv"

	// FormatJSON is a JSON array of objects
	FormatJSON Format = "json"
)

var (
	// ErrJobNotFound indicates no job exists for the given id
	ErrJobNotFound = errors.New("batch job not found")

	// ErrUnsupportedFormat indicates a file format with no reader or writer
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnknownDataType indicates a record family with no handler
	ErrUnknownDataType = errors.New("unknown data type")
)

// Record is one row of imported or exported data
type Record map[string]any

// RecordError captures why one record was rejected
type RecordError struct {
	// Index of the record in the source file, zero-based
	Index int `json:"index"`

	// Validation or persistence failures for the record
	Errors []string `json:"errors"`
}

// Result summarizes a finished batch run
type Result struct {
	TotalRecords      int           `json:"total_records"`
	ProcessedRecords  int           `json:"processed_records"`
	SuccessfulRecords int           `json:"successful_records"`
	FailedRecords     int           `json:"failed_records"`
	Errors            []RecordError `json:"errors,omitempty"`
	ExecutionTime     float64       `json:"execution_time_seconds"`
	Status            Status        `json:"status"`
}

// Job is one batch work item
type Job struct {
	ID          string            `json:"id"`
	Operation   Operation         `json:"operation"`
	DataType    DataType          `json:"data_type"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Progress    float64           `json:"progress"`
	Result      *Result           `json:"result,omitempty"`
	ErrorMsg    string            `json:"error_message,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
