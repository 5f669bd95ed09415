// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
scheduler.go - Automatic Backup Scheduling

Runs backups of the configured default kind on the configured interval.
Intervals of a day or more are anchored to the preferred hour, so daily
backups land at a predictable quiet time instead of drifting with
process restarts. Scheduled runs reuse CreateBackup, so a scheduled job
blocks behind a manual one instead of overlapping it.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"time"
)

// StartScheduler begins automatic scheduled backups. Calling it while the
// scheduler is running, or when scheduling is disabled, is a no-op.
func (m *Manager) StartScheduler() {
	if !m.cfg.Enabled || !m.cfg.Schedule.Enabled {
		return
	}

	m.schedulerMu.Lock()
	defer m.schedulerMu.Unlock()
	if m.schedulerRunning {
		return
	}

	m.schedulerRunning = true
	m.schedulerStop = make(chan struct{})
	m.schedulerDone = make(chan struct{})

	go m.schedulerLoop(m.schedulerStop, m.schedulerDone)
	m.log.Info().
		Dur("interval", m.cfg.Schedule.Interval).
		Int("preferred_hour", m.cfg.Schedule.PreferredHour).
		Msg("Backup scheduler started")
}

// StopScheduler stops automatic backups and waits for the loop to exit.
// Calling it when the scheduler is not running is a no-op. A backup in
// flight when stop is requested runs to completion.
func (m *Manager) StopScheduler() {
	m.schedulerMu.Lock()
	if !m.schedulerRunning {
		m.schedulerMu.Unlock()
		return
	}
	m.schedulerRunning = false
	stop, done := m.schedulerStop, m.schedulerDone
	m.schedulerMu.Unlock()

	close(stop)
	<-done
	m.log.Info().Msg("Backup scheduler stopped")
}

// isSchedulerRunning reports whether the scheduler loop is active
func (m *Manager) isSchedulerRunning() bool {
	m.schedulerMu.Lock()
	defer m.schedulerMu.Unlock()
	return m.schedulerRunning
}

// schedulerLoop waits for each next run time, runs a backup, and repeats
func (m *Manager) schedulerLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		next := m.nextBackupTime(time.Now())
		m.log.Debug().Time("next_backup", next).Msg("Next scheduled backup")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := m.CreateBackup(context.Background(), m.cfg.Kind); err != nil {
			m.log.Error().Err(err).Msg("Scheduled backup failed")
		}
	}
}

// nextBackupTime computes the next run after now. Intervals of 24h or
// more are anchored to the preferred hour; shorter intervals simply add
// the interval.
func (m *Manager) nextBackupTime(now time.Time) time.Time {
	interval := m.cfg.Schedule.Interval
	if interval < 24*time.Hour {
		return now.Add(interval)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		m.cfg.Schedule.PreferredHour, 0, 0, 0, now.Location())
	for !next.After(now) {
		next = next.Add(interval)
	}
	return next
}
