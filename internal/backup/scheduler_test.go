// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

package backup

import (
	"testing"
	"time"
)

// TestNextBackupTime tests schedule computation
func TestNextBackupTime(t *testing.T) {
	tests := []struct {
		name          string
		interval      time.Duration
		preferredHour int
		now           time.Time
		want          time.Time
	}{
		{
			name:     "short interval adds interval",
			interval: 6 * time.Hour,
			now:      time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC),
			want:     time.Date(2026, 8, 23, 16, 30, 0, 0, time.UTC),
		},
		{
			name:          "daily before preferred hour runs today",
			interval:      24 * time.Hour,
			preferredHour: 2,
			now:           time.Date(2026, 8, 23, 1, 0, 0, 0, time.UTC),
			want:          time.Date(2026, 8, 23, 2, 0, 0, 0, time.UTC),
		},
		{
			name:          "daily after preferred hour runs tomorrow",
			interval:      24 * time.Hour,
			preferredHour: 2,
			now:           time.Date(2026, 8, 23, 14, 0, 0, 0, time.UTC),
			want:          time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC),
		},
		{
			name:          "daily exactly at preferred hour runs tomorrow",
			interval:      24 * time.Hour,
			preferredHour: 2,
			now:           time.Date(2026, 8, 23, 2, 0, 0, 0, time.UTC),
			want:          time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC),
		},
		{
			name:          "multi-day interval anchors to preferred hour",
			interval:      48 * time.Hour,
			preferredHour: 3,
			now:           time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
			want:          time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := newTestManager(t, func(c *Config) {
				c.Schedule.Interval = tt.interval
				c.Schedule.PreferredHour = tt.preferredHour
			})

			got := mgr.nextBackupTime(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("nextBackupTime(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

// TestSchedulerStartStopIdempotent tests repeated start and stop calls
func TestSchedulerStartStopIdempotent(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Schedule.Enabled = true
		c.Schedule.Interval = time.Hour
	})

	mgr.StartScheduler()
	mgr.StartScheduler()
	if !mgr.isSchedulerRunning() {
		t.Fatal("scheduler should be running after Start")
	}
	if !mgr.Status().SchedulerRunning {
		t.Error("Status should report the scheduler as running")
	}

	mgr.StopScheduler()
	mgr.StopScheduler()
	if mgr.isSchedulerRunning() {
		t.Error("scheduler should be stopped after Stop")
	}
}

// TestSchedulerDisabled tests that Start is a no-op when scheduling is off
func TestSchedulerDisabled(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.Schedule.Enabled = false
	})

	mgr.StartScheduler()
	if mgr.isSchedulerRunning() {
		t.Error("scheduler must not start when scheduling is disabled")
	}
}
