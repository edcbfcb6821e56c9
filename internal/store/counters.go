// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"path/filepath"
	"time"

	"github.com/cobaltlab/tutorserver/internal/pathsafe"
)

// RecordAttempt increments the attempt counter for a problem,
// creating its entry on first use (spec §4.B counter sub-store,
// §3 "Problem Attempt Counter": monotonic, atomic with respect to
// concurrent submits).
func (st *Store) RecordAttempt(problemID string) error {
	if err := pathsafe.ProblemCounterKey(problemID); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UTC()
	c := st.counters[problemID]
	c.Attempts++
	c.LastAttempt = &now
	st.counters[problemID] = c
	return st.saveCountersLocked()
}

// RecordSolve increments the solve counter for a problem, setting
// first_solve_at only the first time.
func (st *Store) RecordSolve(problemID string) error {
	if err := pathsafe.ProblemCounterKey(problemID); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UTC()
	c := st.counters[problemID]
	c.Solves++
	c.LastSolve = &now
	if c.FirstSolve == nil {
		c.FirstSolve = &now
	}
	st.counters[problemID] = c
	return st.saveCountersLocked()
}

// GetCounters returns a snapshot of every problem's counters.
func (st *Store) GetCounters() map[string]Counter {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make(map[string]Counter, len(st.counters))
	for k, v := range st.counters {
		out[k] = v
	}
	return out
}

func (st *Store) saveCountersLocked() error {
	return saveCounters(filepath.Join(st.sessionsDir, counterFileName), st.counters)
}
