// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
processor.go - Batch Job Execution

The processor owns the job registry and drives import and export runs.
Imports read the whole file up front, then process records in chunks;
records inside a chunk are handled by a bounded worker group, and the
cancellation flag is checked between chunks, so a cancel takes effect
at the next chunk boundary.

Per-record failures (validation or persistence) are collected into the
result and decide the final status:

	all succeeded   -> completed
	some succeeded  -> partial_success
	none succeeded  -> failed
*/

//nolint:staticcheck // File documentation, not package doc
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/daftarhq/daftar/internal/logging"
)

const (
	// defaultChunkSize is the number of records processed per chunk
	defaultChunkSize = 1000

	// chunkWorkers bounds concurrent record handling within a chunk
	chunkWorkers = 4

	// jobIDFormat is the time layout job identifiers are derived from
	jobIDFormat = "20060102_150405"
)

// Store persists imported records and supplies records for export
type Store interface {
	SaveRecord(ctx context.Context, dataType DataType, rec Record) error
	FetchRecords(ctx context.Context, dataType DataType) ([]Record, error)
}

// Processor manages batch jobs over a record store
type Processor struct {
	store Store
	log   zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewProcessor creates a batch processor backed by the given store
func NewProcessor(store Store) *Processor {
	return &Processor{
		store: store,
		log:   logging.With().Str("component", "batch").Logger(),
		jobs:  make(map[string]*Job),
	}
}

// CreateJob registers a new pending job and returns its id
func (p *Processor) CreateJob(op Operation, dataType DataType, metadata map[string]string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	base := fmt.Sprintf("%s_%s_%s", op, dataType, now.Format(jobIDFormat))
	id := base
	for n := 2; ; n++ {
		if _, exists := p.jobs[id]; !exists {
			break
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}

	p.jobs[id] = &Job{
		ID:        id,
		Operation: op,
		DataType:  dataType,
		Status:    StatusPending,
		CreatedAt: now,
		Metadata:  metadata,
	}

	p.log.Debug().Str("job_id", id).Str("operation", string(op)).Msg("Batch job created")
	return id
}

// GetJob returns a copy of the job with the given id
func (p *Processor) GetJob(id string) (Job, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	job, ok := p.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// ListJobs returns copies of all jobs
func (p *Processor) ListJobs() []Job {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Job, 0, len(p.jobs))
	for _, job := range p.jobs {
		out = append(out, *job)
	}
	return out
}

// CancelJob cancels a pending or processing job. A running import stops
// at its next chunk boundary. Returns false for unknown or already
// terminal jobs.
func (p *Processor) CancelJob(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return false
	}
	job.Status = StatusCancelled
	p.log.Info().Str("job_id", id).Msg("Batch job cancelled")
	return true
}

// ImportOptions tunes an import run
type ImportOptions struct {
	// Records per chunk; zero uses the default
	ChunkSize int

	// Validate and count without persisting anything
	ValidateOnly bool
}

// ImportFromFile runs an import job over the given file. Per-record
// failures land in the result; the returned error covers run-level
// failures such as an unreadable file.
func (p *Processor) ImportFromFile(ctx context.Context, jobID, path string, format Format, opts ImportOptions) (*Result, error) {
	job, err := p.startJob(jobID)
	if err != nil {
		return nil, err
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	start := time.Now()
	records, err := ReadRecords(path, format)
	if err != nil {
		return p.finishJob(job, start, &Result{Status: StatusFailed}, err), err
	}

	result := &Result{TotalRecords: len(records)}
	var resultMu sync.Mutex

	for offset := 0; offset < len(records); offset += chunkSize {
		if p.jobCancelled(jobID) {
			result.Status = StatusCancelled
			return p.finishJob(job, start, result, nil), nil
		}
		if err := ctx.Err(); err != nil {
			result.Status = StatusCancelled
			return p.finishJob(job, start, result, err), err
		}

		end := offset + chunkSize
		if end > len(records) {
			end = len(records)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(chunkWorkers)
		for i := offset; i < end; i++ {
			g.Go(func() error {
				recErrs := ValidateRecord(job.DataType, records[i])
				if len(recErrs) == 0 && !opts.ValidateOnly {
					normalized := NormalizeRecord(job.DataType, records[i])
					if err := p.store.SaveRecord(gctx, job.DataType, normalized); err != nil {
						recErrs = []string{err.Error()}
					}
				}

				resultMu.Lock()
				defer resultMu.Unlock()
				result.ProcessedRecords++
				if len(recErrs) == 0 {
					result.SuccessfulRecords++
				} else {
					result.Errors = append(result.Errors, RecordError{Index: i, Errors: recErrs})
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			result.Status = StatusFailed
			return p.finishJob(job, start, result, err), err
		}

		p.setProgress(jobID, float64(result.ProcessedRecords)/float64(result.TotalRecords)*100)
	}

	result.FailedRecords = len(result.Errors)
	switch {
	case result.SuccessfulRecords == result.TotalRecords:
		result.Status = StatusCompleted
	case result.SuccessfulRecords > 0:
		result.Status = StatusPartialSuccess
	default:
		result.Status = StatusFailed
	}

	return p.finishJob(job, start, result, nil), nil
}

// ExportToFile runs an export job, writing every stored record of the
// job's data type to the given file.
func (p *Processor) ExportToFile(ctx context.Context, jobID, path string, format Format) (*Result, error) {
	job, err := p.startJob(jobID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := p.store.FetchRecords(ctx, job.DataType)
	if err != nil {
		return p.finishJob(job, start, &Result{Status: StatusFailed}, err), err
	}

	result := &Result{TotalRecords: len(records)}
	if err := WriteRecords(path, format, records); err != nil {
		result.Status = StatusFailed
		result.FailedRecords = len(records)
		return p.finishJob(job, start, result, err), err
	}

	result.ProcessedRecords = len(records)
	result.SuccessfulRecords = len(records)
	result.Status = StatusCompleted
	return p.finishJob(job, start, result, nil), nil
}

// startJob transitions a job to PROCESSING and returns a snapshot of it
func (p *Processor) startJob(jobID string) (*Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != StatusPending {
		return nil, fmt.Errorf("job %s is %s, not pending", jobID, job.Status)
	}

	now := time.Now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	return job, nil
}

// finishJob records the result on the job and returns the result
func (p *Processor) finishJob(job *Job, start time.Time, result *Result, cause error) *Result {
	result.ExecutionTime = time.Since(start).Seconds()

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	job.CompletedAt = &now
	job.Result = result
	job.Progress = 100
	// A cancel that landed mid-run wins over the computed status
	if job.Status != StatusCancelled {
		job.Status = result.Status
	} else {
		result.Status = StatusCancelled
	}
	if cause != nil {
		job.ErrorMsg = cause.Error()
	}

	evt := p.log.Info()
	if result.Status == StatusFailed {
		evt = p.log.Error().Err(cause)
	}
	evt.Str("job_id", job.ID).
		Str("status", string(result.Status)).
		Int("total", result.TotalRecords).
		Int("succeeded", result.SuccessfulRecords).
		Int("failed", result.FailedRecords).
		Msg("Batch job finished")

	return result
}

// jobCancelled reports whether the job was cancelled mid-run
func (p *Processor) jobCancelled(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	job, ok := p.jobs[jobID]
	return ok && job.Status == StatusCancelled
}

// setProgress updates a job's progress percentage
func (p *Processor) setProgress(jobID string, progress float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if job, ok := p.jobs[jobID]; ok {
		job.Progress = progress
	}
}
