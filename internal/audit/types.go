// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

// Package audit records who did what to which resource, with per-event
// checksums so tampering with stored events is detectable.
//
// Events are recorded asynchronously through a buffered recorder so the
// hot path never blocks on audit persistence. Queries and reports read
// from the underlying store.
package audit

import (
	"errors"
	"time"
)

// EventType classifies what happened
type EventType string

const (
	EventCreate         EventType = "create"
	EventUpdate         EventType = "update"
	EventDelete         EventType = "delete"
	EventLogin          EventType = "login"
	EventLogout         EventType = "logout"
	EventView           EventType = "view"
	EventExport         EventType = "export"
	EventImport         EventType = "import"
	EventPayment        EventType = "payment"
	EventInvoiceSent    EventType = "invoice_sent"
	EventBackup         EventType = "backup"
	EventRestore        EventType = "restore"
	EventSystemConfig   EventType = "system_config"
	EventUserPermission EventType = "user_permission"
)

// securityEventTypes are the event types surfaced by security queries
var securityEventTypes = map[EventType]bool{
	EventLogin:          true,
	EventLogout:         true,
	EventUserPermission: true,
	EventSystemConfig:   true,
}

// Severity grades how sensitive an event is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrRecorderClosed indicates a record attempt after Close
var ErrRecorderClosed = errors.New("audit recorder is closed")

// Actor identifies who performed an action and from where
type Actor struct {
	UserID    string `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Event is one audit trail entry. Checksum covers the identity-bearing
// fields and is set when the event is recorded.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"event_type"`
	Severity  Severity  `json:"severity"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`

	// What was acted on
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Action       string `json:"action"`
	Description  string `json:"description,omitempty"`

	// Before and after snapshots for mutations
	OldValues map[string]string `json:"old_values,omitempty"`
	NewValues map[string]string `json:"new_values,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	Successful   bool   `json:"is_successful"`
	ErrorMessage string `json:"error_message,omitempty"`
	Checksum     string `json:"checksum"`
}

// Filter narrows audit queries. Zero values match everything.
type Filter struct {
	UserID       string
	ResourceType string
	ResourceID   string
	Types        []EventType
	Severity     Severity
	FailedOnly   bool
	Start        time.Time
	End          time.Time
	Limit        int
}

// matches reports whether an event passes the filter, ignoring Limit
func (f Filter) matches(ev *Event) bool {
	if f.UserID != "" && ev.Actor.UserID != f.UserID {
		return false
	}
	if f.ResourceType != "" && ev.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && ev.ResourceID != f.ResourceID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if ev.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Severity != "" && ev.Severity != f.Severity {
		return false
	}
	if f.FailedOnly && ev.Successful {
		return false
	}
	if !f.Start.IsZero() && ev.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && ev.Timestamp.After(f.End) {
		return false
	}
	return true
}
