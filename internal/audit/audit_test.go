// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/daftarhq/daftar/internal/metrics"
)

// newTestRecorder creates a recorder over a fresh memory store
func newTestRecorder(t *testing.T) (*Recorder, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	rec := NewRecorder(store)
	t.Cleanup(func() { rec.Close() }) //nolint:errcheck // Test cleanup
	return rec, store
}

// record is a shorthand that fails the test on error
func record(t *testing.T, rec *Recorder, entry Entry) *Event {
	t.Helper()
	ev, err := rec.Record(entry)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	return ev
}

// TestRecordAndDrain tests that recorded events reach the store with
// ids and checksums
func TestRecordAndDrain(t *testing.T) {
	rec, store := newTestRecorder(t)

	ev := record(t, rec, Entry{
		Type:       EventCreate,
		Actor:      Actor{UserID: "u1", UserName: "sara"},
		Action:     "create_invoice",
		ResourceID: "inv-001",
		Successful: true,
	})

	if ev.ID == "" {
		t.Error("event must carry a generated id")
	}
	if ev.Checksum == "" {
		t.Error("event must carry a checksum")
	}
	if ev.Severity != SeverityMedium {
		t.Errorf("default severity = %s, want %s", ev.Severity, SeverityMedium)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}
}

// TestRecordAfterClose tests the closed-recorder error
func TestRecordAfterClose(t *testing.T) {
	rec, _ := newTestRecorder(t)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := rec.Record(Entry{Type: EventCreate, Action: "x"}); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("error = %v, want ErrRecorderClosed", err)
	}
	// Close is idempotent
	if err := rec.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// TestVerifyIntegrity tests checksum verification and tamper detection
func TestVerifyIntegrity(t *testing.T) {
	rec, _ := newTestRecorder(t)

	ev := record(t, rec, Entry{
		Type:       EventUpdate,
		Actor:      Actor{UserID: "u1"},
		Action:     "update_invoice",
		ResourceID: "inv-001",
		OldValues:  map[string]string{"amount": "100"},
		NewValues:  map[string]string{"amount": "200"},
		Successful: true,
	})

	if !VerifyIntegrity(ev) {
		t.Error("freshly recorded event must verify")
	}

	tampered := *ev
	tampered.Action = "delete_invoice"
	if VerifyIntegrity(&tampered) {
		t.Error("tampered action must fail verification")
	}

	tampered = *ev
	tampered.NewValues = map[string]string{"amount": "999"}
	if VerifyIntegrity(&tampered) {
		t.Error("tampered values must fail verification")
	}

	noChecksum := *ev
	noChecksum.Checksum = ""
	if VerifyIntegrity(&noChecksum) {
		t.Error("event without checksum must not verify")
	}
}

// TestUserActivity tests per-user filtering and ordering
func TestUserActivity(t *testing.T) {
	rec, _ := newTestRecorder(t)

	record(t, rec, Entry{Type: EventCreate, Actor: Actor{UserID: "u1"}, Action: "a", Successful: true})
	record(t, rec, Entry{Type: EventDelete, Actor: Actor{UserID: "u2"}, Action: "b", Successful: true})
	record(t, rec, Entry{Type: EventUpdate, Actor: Actor{UserID: "u1"}, Action: "c", Successful: true})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := rec.UserActivity(context.Background(), "u1", time.Time{}, time.Time{}, nil, 0)
	if err != nil {
		t.Fatalf("UserActivity failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Actor.UserID != "u1" {
			t.Errorf("event from user %s leaked into u1 activity", ev.Actor.UserID)
		}
	}

	typed, err := rec.UserActivity(context.Background(), "u1", time.Time{}, time.Time{}, []EventType{EventUpdate}, 0)
	if err != nil {
		t.Fatalf("UserActivity failed: %v", err)
	}
	if len(typed) != 1 || typed[0].Type != EventUpdate {
		t.Errorf("typed filter returned %v", typed)
	}
}

// TestResourceHistory tests per-resource filtering
func TestResourceHistory(t *testing.T) {
	rec, _ := newTestRecorder(t)

	record(t, rec, Entry{Type: EventCreate, Action: "a", ResourceType: "invoice", ResourceID: "inv-001", Successful: true})
	record(t, rec, Entry{Type: EventUpdate, Action: "b", ResourceType: "invoice", ResourceID: "inv-001", Successful: true})
	record(t, rec, Entry{Type: EventCreate, Action: "c", ResourceType: "invoice", ResourceID: "inv-002", Successful: true})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	events, err := rec.ResourceHistory(context.Background(), "invoice", "inv-001", 0)
	if err != nil {
		t.Fatalf("ResourceHistory failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

// TestSecurityEventsAndFailedOperations tests the security and failure
// views
func TestSecurityEventsAndFailedOperations(t *testing.T) {
	rec, _ := newTestRecorder(t)

	record(t, rec, Entry{Type: EventLogin, Action: "login", Severity: SeverityHigh, Successful: true})
	record(t, rec, Entry{Type: EventCreate, Action: "create", Successful: true})
	record(t, rec, Entry{Type: EventPayment, Action: "charge", Successful: false, ErrorMessage: "card declined"})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	sec, err := rec.SecurityEvents(context.Background(), time.Time{}, time.Time{}, "", 0)
	if err != nil {
		t.Fatalf("SecurityEvents failed: %v", err)
	}
	if len(sec) != 1 || sec[0].Type != EventLogin {
		t.Errorf("security events = %v", sec)
	}

	failed, err := rec.FailedOperations(context.Background(), time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("FailedOperations failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "card declined" {
		t.Errorf("failed operations = %v", failed)
	}
}

// TestGenerateReport tests report aggregation
func TestGenerateReport(t *testing.T) {
	rec, _ := newTestRecorder(t)

	record(t, rec, Entry{Type: EventCreate, Actor: Actor{UserName: "sara"}, Action: "a", Successful: true})
	record(t, rec, Entry{Type: EventCreate, Actor: Actor{UserName: "sara"}, Action: "b", Successful: true})
	record(t, rec, Entry{Type: EventDelete, Actor: Actor{UserID: "u2"}, Action: "c", Successful: false})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	report, err := rec.GenerateReport(context.Background(),
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour), "", nil)
	if err != nil {
		t.Fatalf("GenerateReport failed: %v", err)
	}

	if report.Summary.TotalEvents != 3 || report.Summary.SuccessfulEvents != 2 || report.Summary.FailedEvents != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.SuccessRate < 66 || report.Summary.SuccessRate > 67 {
		t.Errorf("success rate = %f", report.Summary.SuccessRate)
	}
	if report.EventsByType[EventCreate] != 2 {
		t.Errorf("events by type = %v", report.EventsByType)
	}
	if report.EventsByUser["sara"] != 2 || report.EventsByUser["u2"] != 1 {
		t.Errorf("events by user = %v", report.EventsByUser)
	}
	if len(report.RecentEvents) != 3 {
		t.Errorf("recent events = %d, want 3", len(report.RecentEvents))
	}
}

// TestCleanup tests retention deletion
func TestCleanup(t *testing.T) {
	store := NewMemoryStore()
	old := &Event{ID: "old", Type: EventCreate, Action: "a", Timestamp: time.Now().UTC().AddDate(-2, 0, 0)}
	recent := &Event{ID: "recent", Type: EventCreate, Action: "b", Timestamp: time.Now().UTC()}
	if err := store.Append(context.Background(), old); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(context.Background(), recent); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec := NewRecorder(store)
	defer rec.Close() //nolint:errcheck // Test cleanup

	deleted, err := rec.Cleanup(context.Background(), 365)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d events, want 1", deleted)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}

	// Cleanup is idempotent
	deleted, err = rec.Cleanup(context.Background(), 365)
	if err != nil {
		t.Fatalf("second Cleanup failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("second cleanup deleted %d events, want 0", deleted)
	}
}

// TestRecordDuringClose tests that closing the recorder while records
// are in flight never sends on a closed channel
func TestRecordDuringClose(t *testing.T) {
	rec := NewRecorder(NewMemoryStore())

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				if _, err := rec.Record(Entry{Type: EventCreate, Action: "create_invoice", Successful: true}); err != nil {
					if !errors.Is(err, ErrRecorderClosed) {
						t.Errorf("unexpected error: %v", err)
					}
					return
				}
			}
		}()
	}

	close(start)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()

	if _, err := rec.Record(Entry{Type: EventCreate, Action: "create_invoice"}); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("error after close = %v, want ErrRecorderClosed", err)
	}
}

// gatedStore blocks Append until released so tests can fill the
// recorder buffer
type gatedStore struct {
	Store
	gate chan struct{}
}

func (s *gatedStore) Append(ctx context.Context, ev *Event) error {
	<-s.gate
	return s.Store.Append(ctx, ev)
}

// TestRecorderDropsWhenFull tests drop accounting against a full buffer
func TestRecorderDropsWhenFull(t *testing.T) {
	store := &gatedStore{Store: NewMemoryStore(), gate: make(chan struct{})}
	rec := NewRecorder(store)

	before := testutil.ToFloat64(metrics.AuditEventsDropped)

	// The writer blocks on its first event, the buffer holds
	// defaultBufferSize more, anything beyond that must drop
	for i := 0; i < defaultBufferSize+5; i++ {
		if _, err := rec.Record(Entry{Type: EventCreate, Action: "create_invoice", Successful: true}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	dropped := rec.Dropped()
	if dropped < 1 {
		t.Errorf("Dropped() = %d, want at least 1", dropped)
	}
	if got := testutil.ToFloat64(metrics.AuditEventsDropped) - before; got != float64(dropped) {
		t.Errorf("dropped metric delta = %v, want %d", got, dropped)
	}

	close(store.gate)
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
