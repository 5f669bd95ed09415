// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/goccy/go-json"
)

// checksumPayload is the canonical subset of an event covered by its
// checksum. Field order is fixed so serialization is stable.
type checksumPayload struct {
	Type         EventType         `json:"event_type"`
	UserID       string            `json:"user_id"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Timestamp    string            `json:"timestamp"`
	OldValues    map[string]string `json:"old_values"`
	NewValues    map[string]string `json:"new_values"`
}

// computeChecksum derives the integrity checksum of an event
func computeChecksum(ev *Event) string {
	payload := checksumPayload{
		Type:         ev.Type,
		UserID:       ev.Actor.UserID,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Timestamp:    ev.Timestamp.UTC().Format(time.RFC3339Nano),
		OldValues:    ev.OldValues,
		NewValues:    ev.NewValues,
	}

	// Map keys marshal in sorted order, so equal payloads hash equally
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether an event's checksum still matches its
// covered fields. Events without a checksum never verify.
func VerifyIntegrity(ev *Event) bool {
	if ev.Checksum == "" {
		return false
	}
	return computeChecksum(ev) == ev.Checksum
}
