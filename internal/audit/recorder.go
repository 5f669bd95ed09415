// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
recorder.go - Asynchronous Audit Recorder

Record enqueues onto a buffered channel and returns immediately; a
single background writer drains the channel into the store, which keeps
event ordering stable. When the buffer is full the event is dropped and
counted rather than blocking the caller: losing an audit event under
extreme load is preferable to stalling an invoice write.

Close drains whatever is still buffered before returning, so events
recorded before shutdown are not lost.
*/

//nolint:staticcheck // File documentation, not package doc
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daftarhq/daftar/internal/logging"
	"github.com/daftarhq/daftar/internal/metrics"
)

// defaultBufferSize is the recorder channel capacity
const defaultBufferSize = 1024

// Recorder accepts audit events and persists them in the background
type Recorder struct {
	store Store
	log   zerolog.Logger

	// mu orders Record's channel send against Close: once closed is set
	// under the write lock no send can reach the closed channel.
	mu     sync.RWMutex
	closed bool

	ch      chan *Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewRecorder creates a recorder over the given store and starts its
// background writer.
func NewRecorder(store Store) *Recorder {
	r := &Recorder{
		store: store,
		log:   logging.With().Str("component", "audit").Logger(),
		ch:    make(chan *Event, defaultBufferSize),
		done:  make(chan struct{}),
	}

	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// writeLoop drains the channel into the store
func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for ev := range r.ch {
		if err := r.store.Append(context.Background(), ev); err != nil {
			r.log.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to persist audit event")
		}
	}
	close(r.done)
}

// Entry is the caller-supplied part of an audit event
type Entry struct {
	Type         EventType
	Severity     Severity
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Description  string
	OldValues    map[string]string
	NewValues    map[string]string
	Metadata     map[string]string
	Successful   bool
	ErrorMessage string
}

// Record enqueues an audit event. The returned event carries its
// generated id and checksum. Events are dropped, not blocked on, when
// the buffer is full.
func (r *Recorder) Record(entry Entry) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRecorderClosed
	}

	severity := entry.Severity
	if severity == "" {
		severity = SeverityMedium
	}

	ev := &Event{
		ID:           uuid.New().String(),
		Type:         entry.Type,
		Severity:     severity,
		Actor:        entry.Actor,
		Timestamp:    time.Now().UTC(),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       entry.Action,
		Description:  entry.Description,
		OldValues:    entry.OldValues,
		NewValues:    entry.NewValues,
		Metadata:     entry.Metadata,
		Successful:   entry.Successful,
		ErrorMessage: entry.ErrorMessage,
	}
	ev.Checksum = computeChecksum(ev)

	select {
	case r.ch <- ev:
	default:
		dropped := r.dropped.Add(1)
		metrics.AuditEventsDropped.Inc()
		r.log.Warn().Int64("dropped_total", dropped).Msg("Audit buffer full, event dropped")
	}

	return ev, nil
}

// Dropped returns how many events were discarded due to a full buffer
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting events and drains the buffer into the store
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	<-r.done
	return nil
}

// UserActivity returns a user's events, newest first
func (r *Recorder) UserActivity(ctx context.Context, userID string, start, end time.Time, types []EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.store.Query(ctx, Filter{
		UserID: userID,
		Start:  start,
		End:    end,
		Types:  types,
		Limit:  limit,
	})
}

// ResourceHistory returns the events that touched one resource
func (r *Recorder) ResourceHistory(ctx context.Context, resourceType, resourceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.store.Query(ctx, Filter{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Limit:        limit,
	})
}

// SecurityEvents returns authentication and permission events
func (r *Recorder) SecurityEvents(ctx context.Context, start, end time.Time, severity Severity, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	types := make([]EventType, 0, len(securityEventTypes))
	for t := range securityEventTypes {
		types = append(types, t)
	}
	return r.store.Query(ctx, Filter{
		Types:    types,
		Severity: severity,
		Start:    start,
		End:      end,
		Limit:    limit,
	})
}

// FailedOperations returns unsuccessful events
func (r *Recorder) FailedOperations(ctx context.Context, start, end time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.store.Query(ctx, Filter{
		FailedOnly: true,
		Start:      start,
		End:        end,
		Limit:      limit,
	})
}

// Cleanup removes events older than the retention window
func (r *Recorder) Cleanup(ctx context.Context, keepDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.log.Info().Int("deleted", deleted).Msg("Cleaned up old audit events")
	}
	return deleted, nil
}
