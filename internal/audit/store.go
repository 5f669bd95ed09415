// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists audit events
type Store interface {
	// Append adds one event
	Append(ctx context.Context, ev *Event) error

	// Query returns events matching the filter, newest first
	Query(ctx context.Context, f Filter) ([]Event, error)

	// DeleteOlderThan removes events before the cutoff, returning how
	// many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore is an in-process event store. Suitable for single-node
// deployments; the interface leaves room for a database-backed store.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds one event
func (s *MemoryStore) Append(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

// Query returns matching events, newest first
func (s *MemoryStore) Query(_ context.Context, f Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := range s.events {
		if f.matches(&s.events[i]) {
			out = append(out, s.events[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// DeleteOlderThan removes events before the cutoff
func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	deleted := 0
	for i := range s.events {
		if s.events[i].Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s.events[i])
	}
	s.events = kept
	return deleted, nil
}

// Len returns the number of stored events
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
