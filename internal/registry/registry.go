// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registry implements the Tutor Registry (spec §4.D): a
// bounded, TTL-based holding area for tutor adapters disconnected
// clients may reclaim within a grace period.
package registry

import (
	"container/heap"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cobaltlab/tutorserver/internal/store"
	"github.com/cobaltlab/tutorserver/internal/tutor"
)

// parkedEntry is one adapter held by the registry, with the deadline
// past which it is swept.
type parkedEntry struct {
	sessionID string
	adapter   *tutor.Adapter
	deadline  time.Time
	heapIndex int
}

// Registry holds parked tutor adapters under a single mutex (spec
// §4.D "Concurrency": all four operations acquire one registry mutex
// and complete their mutation under it), generalizing the teacher's
// claude.Manager session map with a TTL and capacity the teacher's
// map does not have.
type Registry struct {
	mu         sync.Mutex
	ttl        time.Duration
	capacity   int
	entries    map[string]*parkedEntry
	byDeadline deadlineHeap
	store      *store.Store
}

// New builds a Registry that parks entries for ttl and holds at most
// capacity of them at once. st is finalized (Store.End) whenever a
// parked entry is terminated by this registry, not reclaimed: TTL
// expiry, capacity eviction, or an explicit Kill are the terminal
// events spec §3 assigns to the registry rather than to a live
// connection's disconnect.
func New(st *store.Store, ttl time.Duration, capacity int) *Registry {
	return &Registry{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*parkedEntry),
		store:    st,
	}
}

// Park inserts a, keyed by sessionID, with deadline now+TTL. Parking
// at capacity evicts and terminates the entry with the earliest
// deadline (spec §4.D "Capacity").
func (r *Registry) Park(sessionID string, a *tutor.Adapter) {
	r.mu.Lock()
	entry := &parkedEntry{sessionID: sessionID, adapter: a, deadline: time.Now().Add(r.ttl)}

	if existing, ok := r.entries[sessionID]; ok {
		heap.Remove(&r.byDeadline, existing.heapIndex)
		delete(r.entries, sessionID)
	}

	var evicted *parkedEntry
	if len(r.entries) >= r.capacity && r.capacity > 0 {
		evicted = heap.Pop(&r.byDeadline).(*parkedEntry)
		delete(r.entries, evicted.sessionID)
	}

	r.entries[sessionID] = entry
	heap.Push(&r.byDeadline, entry)
	r.mu.Unlock()

	if evicted != nil {
		evicted.adapter.End()
		r.finalize(evicted.sessionID)
	}
}

// Reclaim atomically removes and returns the parked adapter for
// sessionID, if still present. Exactly one caller among any
// concurrent Reclaim(id) calls ever receives a non-nil adapter (spec
// P4, §4.D "compound pop").
func (r *Registry) Reclaim(sessionID string) (*tutor.Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.entries, sessionID)
	heap.Remove(&r.byDeadline, entry.heapIndex)
	return entry.adapter, true
}

// Kill removes and terminates the parked entry for sessionID, if any.
func (r *Registry) Kill(sessionID string) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if ok {
		delete(r.entries, sessionID)
		heap.Remove(&r.byDeadline, entry.heapIndex)
	}
	r.mu.Unlock()

	if ok {
		entry.adapter.End()
		r.finalize(sessionID)
	}
}

// finalize marks a session terminated in the Store once this registry
// has itself ended the session's adapter (TTL expiry, capacity
// eviction, or an explicit Kill) rather than merely parking it for a
// client's later reclaim.
func (r *Registry) finalize(sessionID string) {
	if r.store == nil {
		return
	}
	if err := r.store.End(sessionID); err != nil {
		log.Printf("registry: failed to finalize session %s: %v", sessionID, err)
	}
}

// Len reports the number of currently parked entries (spec P5).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep removes and terminates every entry whose deadline has passed
// (spec §4.D "Background sweep"). Each termination is isolated so one
// failing adapter cannot abort the sweep.
func (r *Registry) Sweep() {
	now := time.Now()

	r.mu.Lock()
	var expired []*parkedEntry
	for r.byDeadline.Len() > 0 && r.byDeadline[0].deadline.Before(now) {
		e := heap.Pop(&r.byDeadline).(*parkedEntry)
		delete(r.entries, e.sessionID)
		expired = append(expired, e)
	}
	r.mu.Unlock()

	for _, e := range expired {
		r.terminateOne(e)
	}
}

// terminateOne ends a single adapter and finalizes its session in the
// Store, containing any panic so a single misbehaving adapter cannot
// take down the sweep loop (spec §4.D: "one termination failure must
// not halt the sweep").
func (r *Registry) terminateOne(e *parkedEntry) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("registry: panic terminating parked session %s: %v\n%s", e.sessionID, rec, debug.Stack())
		}
	}()
	e.adapter.End()
	r.finalize(e.sessionID)
}

// RunSweepLoop calls Sweep every interval until stop is closed. It
// runs under its own panic-recovering supervisor that restarts the
// loop if it ever exits unexpectedly, mirroring the restart-on-crash
// bookkeeping in internal/service.ServiceManager.handleExit adapted
// from "restart a crashed child process" to "restart a crashed
// goroutine", composed with the panic-to-log pattern in
// internal/api/middleware.Recovery.
func (r *Registry) RunSweepLoop(interval time.Duration, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if r.runSweepLoopOnce(interval, stop) {
			return
		}
		log.Printf("registry: sweep loop restarting after unexpected exit")
		time.Sleep(time.Second)
	}
}

// runSweepLoopOnce runs the sweep ticker until stop fires (returning
// true) or a panic escapes one Sweep call (returning false so the
// caller restarts it).
func (r *Registry) runSweepLoopOnce(interval time.Duration, stop <-chan struct{}) (stopped bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("registry: sweep loop panic: %v\n%s", rec, debug.Stack())
			stopped = false
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return true
		case <-ticker.C:
			r.Sweep()
		}
	}
}
