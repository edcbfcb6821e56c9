// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrCorrupt is returned by loadSession when a session file exists
// but cannot be parsed (spec §4.B "Corruption tolerance": get()
// returns a distinguished corrupt outcome rather than raising).
var ErrCorrupt = errors.New("session file is corrupt")

// loadSession reads and decodes one session file. A missing file
// returns (Session{}, os.ErrNotExist); an unparseable file returns
// ErrCorrupt, never a raw decode error, so callers can tell the two
// apart without inspecting error strings.
func loadSession(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, ErrCorrupt
	}
	return s, nil
}

// saveSession writes a session atomically: marshal, write to a temp
// file in the same directory, rename over the target. A crash
// mid-write leaves the previous version intact (spec §4.B
// "Atomicity"), mirroring the teacher's saveRecords
// (internal/claude/store.go).
func saveSession(path string, s Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// counterFile is the on-disk shape of the counter sub-store, one file
// for the whole catalog (spec §6: "_problem_history.json").
type counterFile struct {
	Counters map[string]Counter `json:"counters"`
}

// Counter is the per-problem attempt/solve tally (spec §3 "Problem
// Attempt Counter").
type Counter struct {
	Attempts    int        `json:"attempts"`
	Solves      int        `json:"solves"`
	LastAttempt *time.Time `json:"last_attempt_at,omitempty"`
	LastSolve   *time.Time `json:"last_solve_at,omitempty"`
	FirstSolve  *time.Time `json:"first_solve_at,omitempty"`
}

func loadCounters(path string) (map[string]Counter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Counter{}, nil
		}
		return nil, fmt.Errorf("read counters file: %w", err)
	}
	if len(data) == 0 {
		return map[string]Counter{}, nil
	}
	var cf counterFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse counters file: %w", err)
	}
	if cf.Counters == nil {
		cf.Counters = map[string]Counter{}
	}
	return cf.Counters, nil
}

func saveCounters(path string, counters map[string]Counter) error {
	data, err := json.MarshalIndent(counterFile{Counters: counters}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp counters file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename counters file: %w", err)
	}
	return nil
}
