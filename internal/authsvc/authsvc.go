// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package authsvc implements the bearer-token login and rate-limiting
// surface spec §4.E/§6 asks for: POST /api/login {password} → {token},
// GET /api/auth/status, and per-address login rate limiting.
package authsvc

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	tokenTTL             = 24 * time.Hour
	defaultRateLimit     = 5
	defaultRateLimitWindow = time.Minute
)

// Service issues and validates bearer tokens and rate-limits login
// attempts by remote address. Token ids use uuid.New(), the same
// generator the teacher reaches for whenever it needs an opaque id
// (claude.Manager's session ids).
type Service struct {
	mu       sync.Mutex
	password string
	tokens   map[string]time.Time // token -> creation time
	attempts map[string][]time.Time

	rateLimit       int
	rateLimitWindow time.Duration
}

// New builds a Service that requires password for login. An empty
// password disables auth entirely (spec §6: "TUTOR_PASSWORD enables
// auth when set").
func New(password string) *Service {
	return &Service{
		password:        password,
		tokens:          make(map[string]time.Time),
		attempts:        make(map[string][]time.Time),
		rateLimit:       defaultRateLimit,
		rateLimitWindow: defaultRateLimitWindow,
	}
}

// Enabled reports whether auth is required.
func (s *Service) Enabled() bool {
	return s.password != ""
}

// RateLimited reports whether addr has exceeded the login attempt
// budget for the current window, without recording a new attempt.
func (s *Service) RateLimited(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recentAttemptsLocked(addr)) >= s.rateLimit
}

// Login validates password for a login attempt from addr, recording
// the attempt whether or not it succeeds (so repeated failures still
// count against the rate limit). Returns a new token on success.
func (s *Service) Login(addr, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.recentAttemptsLocked(addr)
	if len(recent) >= s.rateLimit {
		s.attempts[addr] = recent
		return "", false
	}
	s.attempts[addr] = append(recent, time.Now())

	if !s.Enabled() || password != s.password {
		return "", false
	}

	token := uuid.New().String()
	s.tokens[token] = time.Now()
	return token, true
}

// Validate reports whether token is a live, unexpired token.
func (s *Service) Validate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Since(created) > tokenTTL {
		delete(s.tokens, token)
		return false
	}
	return true
}

// recentAttemptsLocked filters addr's recorded attempts to those
// still inside the rate limit window. Caller must hold s.mu.
func (s *Service) recentAttemptsLocked(addr string) []time.Time {
	cutoff := time.Now().Add(-s.rateLimitWindow)
	var kept []time.Time
	for _, t := range s.attempts[addr] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Prune removes expired tokens and stale rate-limit entries. Intended
// to be called periodically by a background loop (mirrors the
// registry's sweep), keeping the maps from growing unbounded across a
// long-running process.
func (s *Service) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, created := range s.tokens {
		if time.Since(created) > tokenTTL {
			delete(s.tokens, token)
		}
	}
	cutoff := time.Now().Add(-s.rateLimitWindow)
	for addr, times := range s.attempts {
		var kept []time.Time
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(s.attempts, addr)
		} else {
			s.attempts[addr] = kept
		}
	}
}

// RunPruneLoop calls Prune every interval until stop is closed.
func (s *Service) RunPruneLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}
