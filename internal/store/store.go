// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cobaltlab/tutorserver/internal/pathsafe"
)

// ErrNotFound is returned when a requested session id is
// well-formed but no file exists for it.
var ErrNotFound = errors.New("session not found")

const counterFileName = "_problem_history.json"

// Store is the Durable Session Store (spec §4.B). One Store instance
// guards all session and counter state with a single mutex; all file
// I/O happens under the lock, matching the teacher's own
// claude.Manager (a single struct mutex wrapping every mutating
// operation's read-modify-write cycle), generalized here from an
// in-memory-plus-disk cache to disk-is-the-source-of-truth since the
// spec requires every mutation to hit disk before it is acknowledged.
type Store struct {
	mu          sync.Mutex
	sessionsDir string
	counters    map[string]Counter
}

// New opens a Store rooted at sessionsDir, creating it if absent, and
// loads the counter file.
func New(sessionsDir string) (*Store, error) {
	if err := os.MkdirAll(sessionsDir, 0o700); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	counters, err := loadCounters(filepath.Join(sessionsDir, counterFileName))
	if err != nil {
		return nil, err
	}
	return &Store{sessionsDir: sessionsDir, counters: counters}, nil
}

// NewSessionID generates a 16-hex-character id from a cryptographic
// RNG (spec §4.B "Session id generation"). The caller should retry on
// collision, up to 3 times, before treating it as fatal.
func NewSessionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create persists a brand-new session, retrying id generation up to 3
// times on the vanishingly unlikely event of a collision with an
// existing file.
func (st *Store) Create(problemID string, mode Mode) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	var id string
	var path string
	for attempt := 0; attempt < 3; attempt++ {
		candidate, err := NewSessionID()
		if err != nil {
			return Session{}, err
		}
		p, err := pathsafe.SessionFile(st.sessionsDir, candidate)
		if err != nil {
			return Session{}, err
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			id, path = candidate, p
			break
		}
	}
	if id == "" {
		return Session{}, fmt.Errorf("could not allocate a unique session id after 3 attempts")
	}

	s := Session{
		ID:          id,
		ProblemID:   problemID,
		Mode:        mode,
		StartedAt:   time.Now().UTC(),
		ChatHistory: []ChatMessage{},
	}
	if err := saveSession(path, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get loads a session by id. It returns ErrNotFound for an
// unrecognized or invalid id, ErrCorrupt for a file that exists but
// does not parse, and never a raw decode error (spec §4.B
// "Corruption tolerance").
func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.get(id)
}

func (st *Store) get(id string) (Session, error) {
	path, err := pathsafe.SessionFile(st.sessionsDir, id)
	if err != nil {
		return Session{}, ErrNotFound
	}
	s, err := loadSession(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

// List returns a summary of every non-corrupt session, skipping (and
// logging a warning for) any file that fails to parse (spec §4.B
// "Corruption tolerance"), mirroring the teacher's loadRecords
// tolerance for a truncated last line. Per-file reads fan out
// concurrently the same way the teacher's trace manager searches
// multiple log viewers in parallel, with a mutex guarding the shared
// result slice instead of the teacher's result map.
func (st *Store) List() ([]Summary, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	entries, err := os.ReadDir(st.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var (
		g   errgroup.Group
		mu  sync.Mutex
		out []Summary
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || name == counterFileName {
			continue
		}
		id := name[:len(name)-len(".json")]
		if !pathsafe.ValidSessionID(id) {
			continue
		}
		g.Go(func() error {
			s, err := st.get(id)
			if err != nil {
				log.Printf("store: skipping unreadable session %s: %v", id, err)
				return nil
			}
			summary := s.summary()
			mu.Lock()
			out = append(out, summary)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// AppendMessage appends a chat turn and persists the whole session.
func (st *Store) AppendMessage(id string, msg ChatMessage) error {
	return st.mutate(id, func(s *Session) {
		s.ChatHistory = append(s.ChatHistory, msg)
	})
}

// SetCode updates the session's last editor code.
func (st *Store) SetCode(id, code string) error {
	return st.mutate(id, func(s *Session) {
		s.Code = code
	})
}

// SetTimer updates the session's remaining time.
func (st *Store) SetTimer(id string, remainingSeconds int) error {
	return st.mutate(id, func(s *Session) {
		s.TimeRemainingSeconds = remainingSeconds
	})
}

// IncrementHintCount records that a hint began streaming. Per
// SPEC_FULL.md's resolution of the source's "increment before
// generation" open question, this is called after the hint starts,
// not before, so a hint that fails to spawn does not count.
func (st *Store) IncrementHintCount(id string) error {
	return st.mutate(id, func(s *Session) {
		s.HintCount++
	})
}

// SetInterviewPhase updates the session's interview-mode phase.
func (st *Store) SetInterviewPhase(id, phase string) error {
	return st.mutate(id, func(s *Session) {
		s.InterviewPhase = phase
	})
}

// SetWhiteboard replaces the session's free-form whiteboard blob.
func (st *Store) SetWhiteboard(id string, blob []byte) error {
	return st.mutate(id, func(s *Session) {
		s.Whiteboard = blob
	})
}

// End marks a session terminated.
func (st *Store) End(id string) error {
	return st.mutate(id, func(s *Session) {
		if s.EndedAt == nil {
			now := time.Now().UTC()
			s.EndedAt = &now
		}
	})
}

// mutate loads a session, applies fn under the store lock, and
// persists the result atomically — the whole read-modify-write cycle
// happens while holding mu, per spec §4.B "Concurrency".
func (st *Store) mutate(id string, fn func(s *Session)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, err := st.get(id)
	if err != nil {
		return err
	}
	fn(&s)
	path, err := pathsafe.SessionFile(st.sessionsDir, id)
	if err != nil {
		return ErrNotFound
	}
	return saveSession(path, s)
}

// Delete removes a session's file and its workspace is the caller's
// responsibility to clean up (the Store owns only the session
// record, spec §3 "Ownership").
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	path, err := pathsafe.SessionFile(st.sessionsDir, id)
	if err != nil {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// LatestResumable returns the most recently started, not-yet-ended
// session for a problem, if any.
func (st *Store) LatestResumable(problemID string) (string, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	entries, err := os.ReadDir(st.sessionsDir)
	if err != nil {
		return "", false, fmt.Errorf("read sessions dir: %w", err)
	}

	var best Session
	found := false
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || name == counterFileName {
			continue
		}
		id := name[:len(name)-len(".json")]
		if !pathsafe.ValidSessionID(id) {
			continue
		}
		s, err := st.get(id)
		if err != nil || s.ProblemID != problemID || !s.Resumable() {
			continue
		}
		if !found || s.StartedAt.After(best.StartedAt) {
			best, found = s, true
		}
	}
	if !found {
		return "", false, nil
	}
	return best.ID, true, nil
}
