// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package audit

import (
	"context"
	"time"
)

// recentEventCount is how many events a report includes verbatim
const recentEventCount = 10

// ReportSummary aggregates event outcomes over a report period
type ReportSummary struct {
	TotalEvents      int     `json:"total_events"`
	SuccessfulEvents int     `json:"successful_events"`
	FailedEvents     int     `json:"failed_events"`
	SuccessRate      float64 `json:"success_rate"`
}

// Report is a period-bounded audit summary
type Report struct {
	Start            time.Time         `json:"start_date"`
	End              time.Time         `json:"end_date"`
	Summary          ReportSummary     `json:"summary"`
	EventsByType     map[EventType]int `json:"events_by_type"`
	EventsByUser     map[string]int    `json:"events_by_user"`
	EventsBySeverity map[Severity]int  `json:"events_by_severity"`
	RecentEvents     []Event           `json:"recent_events"`
}

// GenerateReport summarizes audit activity over a period, optionally
// narrowed to one user or a set of event types.
func (r *Recorder) GenerateReport(ctx context.Context, start, end time.Time, userID string, types []EventType) (*Report, error) {
	events, err := r.store.Query(ctx, Filter{
		UserID: userID,
		Types:  types,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Start:            start,
		End:              end,
		EventsByType:     make(map[EventType]int),
		EventsByUser:     make(map[string]int),
		EventsBySeverity: make(map[Severity]int),
	}

	for i := range events {
		ev := &events[i]
		report.Summary.TotalEvents++
		if ev.Successful {
			report.Summary.SuccessfulEvents++
		} else {
			report.Summary.FailedEvents++
		}

		report.EventsByType[ev.Type]++
		report.EventsBySeverity[ev.Severity]++

		user := ev.Actor.UserName
		if user == "" {
			user = ev.Actor.UserID
		}
		if user == "" {
			user = "unknown"
		}
		report.EventsByUser[user]++
	}

	if report.Summary.TotalEvents > 0 {
		report.Summary.SuccessRate = float64(report.Summary.SuccessfulEvents) / float64(report.Summary.TotalEvents) * 100
	}

	// Query returns newest first
	if len(events) > recentEventCount {
		events = events[:recentEventCount]
	}
	report.RecentEvents = events

	return report, nil
}
