// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/cobaltlab/tutorserver/internal/authsvc"
	"github.com/cobaltlab/tutorserver/internal/pathsafe"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/registry"
	"github.com/cobaltlab/tutorserver/internal/sandbox"
	"github.com/cobaltlab/tutorserver/internal/store"
	"github.com/cobaltlab/tutorserver/internal/tutor"
)

// Sender delivers one ServerMessage to the client. The production
// implementation wraps a *websocket.Conn behind the teacher's own
// write-mutex closure (internal/api/handlers.ClaudeHandler.serveSession's
// writeJSON); generalized to an interface here so the dispatch logic
// in this file can be exercised without a network connection.
type Sender interface {
	Send(ServerMessage) error
}

// Deps are the shared, long-lived collaborators a Connection needs.
// One Deps is constructed once at startup and handed to every
// Connection (spec §9 "Global singletons... become scoped
// instances": no global writable state, just passed-in references).
type Deps struct {
	Store         *store.Store
	Registry      *registry.Registry
	Catalog       *problems.Catalog
	Executor      *sandbox.Executor
	Auth          *authsvc.Service
	WorkspacesDir string
	BackendCmd    []string
}

// Connection is a per-WebSocket-connection Session Orchestrator (spec
// §4.E). It owns at most one active store.Session and tutor.Adapter
// at a time; concurrent handlers on the same connection are
// serialized by mu, mirroring the spec's per-session lock.
type Connection struct {
	deps   Deps
	sender Sender
	addr   string

	mu             sync.Mutex
	authenticated  bool
	sessionID      string
	adapter        *tutor.Adapter
	adapterWorkDir string
}

// NewConnection builds a Connection bound to sender for the
// connection from addr (used for login rate limiting upstream of
// this type, and informationally here).
func NewConnection(deps Deps, sender Sender, addr string) *Connection {
	return &Connection{deps: deps, sender: sender, addr: addr}
}

// Handle dispatches one inbound message. It returns closeConn == true
// in two cases: an auth message whose token is rejected (the caller
// closes with the 4001 code, spec §6), and any other message arriving
// before the connection has authenticated. Every other outcome is
// reported as an error message and returns false.
func (c *Connection) Handle(ctx context.Context, msg ClientMessage) (closeConn bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: panic handling %s: %v", msg.Type, r)
			c.sendError(ErrInternal, "internal error")
		}
	}()

	if msg.Type != MsgAuth && !c.authenticated {
		c.sendError(ErrAuthRejected, "not authenticated")
		return true
	}

	switch msg.Type {
	case MsgAuth:
		return c.handleAuth(msg)
	case MsgStartSession:
		c.withLock(func() { c.handleStartSession(ctx, msg) })
	case MsgResumeSession:
		c.withLock(func() { c.handleResumeSession(ctx, msg) })
	case MsgMessage:
		c.withLock(func() { c.handleChat(ctx, msg, false, false) })
	case MsgRequestHint:
		c.withLock(func() { c.handleChat(ctx, msg, true, false) })
	case MsgNudgeRequest:
		c.withLock(func() { c.handleChat(ctx, msg, false, true) })
	case MsgTimeUpdate:
		c.withLock(func() { c.handleTimeUpdate(msg) })
	case MsgTimeUp:
		c.withLock(func() { c.handleTimeUp(msg) })
	case MsgEndSession:
		c.withLock(func() { c.handleEndSession() })
	default:
		c.sendError(ErrValidation, "unknown message type")
	}
	return false
}

func (c *Connection) withLock(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Connection) handleAuth(msg ClientMessage) (closeConn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deps.Auth == nil || !c.deps.Auth.Enabled() {
		c.authenticated = true
		return false
	}
	if c.deps.Auth.Validate(msg.Token) {
		c.authenticated = true
		return false
	}
	c.sendError(ErrAuthRejected, "invalid token")
	return true
}

// handleStartSession ends any prior session owned by this connection,
// creates a new one, and spawns a fresh adapter (spec §4.E
// start_session).
func (c *Connection) handleStartSession(ctx context.Context, msg ClientMessage) {
	if msg.ProblemID == "" || !c.deps.Catalog.Has(msg.ProblemID) {
		c.sendError(ErrNotFound, "unknown problem")
		return
	}
	mode := store.Mode(msg.Mode)
	if mode == "" {
		mode = store.ModeLearning
	}

	c.endCurrentSessionLocked()

	s, err := c.deps.Store.Create(msg.ProblemID, mode)
	if err != nil {
		log.Printf("orchestrator: create session: %v", err)
		c.sendError(ErrStoreIO, "could not create session")
		return
	}

	if err := c.spawnAdapterLocked(ctx, s.ID); err != nil {
		log.Printf("orchestrator: spawn adapter for %s: %v", s.ID, err)
		c.sendError(ErrTutorSpawn, "could not start tutor")
		return
	}

	c.sessionID = s.ID
	c.send(ServerMessage{Type: EvtSessionStarted, SessionID: s.ID})
}

// handleResumeSession reattaches to a prior session: reclaim a parked
// adapter if still live, otherwise spawn fresh and replay history
// (spec §4.E resume_session).
func (c *Connection) handleResumeSession(ctx context.Context, msg ClientMessage) {
	if !pathsafe.ValidSessionID(msg.SessionID) {
		c.sendError(ErrValidation, "malformed session id")
		return
	}

	s, err := c.deps.Store.Get(msg.SessionID)
	if err != nil {
		switch err {
		case store.ErrNotFound:
			c.sendError(ErrNotFound, "session not found")
		case store.ErrCorrupt:
			c.sendError(ErrStoreCorrupt, "session record is corrupt")
		default:
			c.sendError(ErrStoreIO, "could not read session")
		}
		return
	}

	c.endCurrentSessionLocked()

	if a, ok := c.deps.Registry.Reclaim(msg.SessionID); ok {
		c.adapter = a
		c.adapterWorkDir, _ = pathsafe.WorkspaceDir(c.deps.WorkspacesDir, msg.SessionID)
	} else {
		if err := c.spawnAdapterLocked(ctx, msg.SessionID); err != nil {
			log.Printf("orchestrator: respawn adapter for %s: %v", msg.SessionID, err)
			c.sendError(ErrTutorSpawn, "could not restart tutor")
			return
		}
		c.replayHistory(ctx, s)
	}

	c.sessionID = msg.SessionID
	c.send(ServerMessage{
		Type:           EvtSessionResumed,
		SessionID:      s.ID,
		ProblemID:      s.ProblemID,
		Mode:           string(s.Mode),
		ChatHistory:    toWireHistory(s.ChatHistory),
		LastEditorCode: s.Code,
		TimeRemaining:  s.TimeRemainingSeconds,
		InterviewPhase: s.InterviewPhase,
	})
}

// replayHistory resends the persisted chat history into a freshly
// spawned adapter after a reclaim miss (spec §4.C "Resume": "the
// orchestrator falls back to a replay"). Best-effort: a failure here
// does not fail the resume, it only means the backend starts without
// prior context.
func (c *Connection) replayHistory(ctx context.Context, s store.Session) {
	for _, msg := range s.ChatHistory {
		if msg.Role != store.RoleUser {
			continue
		}
		ch, err := c.adapter.Chat(ctx, msg.Content, s.Code)
		if err != nil {
			return
		}
		for range ch {
			// Drain without forwarding; this is context replay, not a
			// live turn the client is watching.
		}
	}
}

func (c *Connection) spawnAdapterLocked(ctx context.Context, sessionID string) error {
	workDir, err := pathsafe.WorkspaceDir(c.deps.WorkspacesDir, sessionID)
	if err != nil {
		return err
	}
	a := tutor.New(sessionID, workDir, c.deps.BackendCmd)
	if err := a.Start(ctx); err != nil {
		return err
	}
	c.adapter = a
	c.adapterWorkDir = workDir
	return nil
}

// handleChat covers message, request_hint, and nudge_request, which
// differ only in how the prompt is templated (spec §4.E).
func (c *Connection) handleChat(ctx context.Context, msg ClientMessage, isHint, isNudge bool) {
	if c.sessionID == "" || c.adapter == nil {
		c.sendError(ErrConflict, "no active session")
		return
	}

	prompt := msg.Content
	switch {
	case isHint:
		prompt = "Please give me a hint for this problem."
	case isNudge:
		prompt = "[nudge:" + msg.Trigger + "] " + msg.Context
	}

	if !isHint && !isNudge {
		_ = c.deps.Store.AppendMessage(c.sessionID, store.ChatMessage{
			Role: store.RoleUser, Content: msg.Content, Timestamp: time.Now().UTC(),
		})
	}
	if msg.Code != "" {
		_ = c.deps.Store.SetCode(c.sessionID, msg.Code)
	}

	ch, err := c.adapter.Chat(ctx, prompt, msg.Code)
	if err != nil {
		c.sendError(ErrTutorStream, "tutor is busy")
		return
	}

	hintCounted := !isHint
	var final string
	for chunk := range ch {
		if !hintCounted && chunk.Type != tutor.ChunkError {
			_ = c.deps.Store.IncrementHintCount(c.sessionID)
			hintCounted = true
		}
		switch chunk.Type {
		case tutor.ChunkText:
			c.send(ServerMessage{Type: EvtAssistantChunk, Content: chunk.Text})
		case tutor.ChunkFinal:
			final = chunk.Text
		case tutor.ChunkError:
			c.sendError(ErrTutorStream, "tutor stream failed")
			return
		}
	}

	_ = c.deps.Store.AppendMessage(c.sessionID, store.ChatMessage{
		Role: store.RoleAssistant, Content: final, Timestamp: time.Now().UTC(),
	})
	c.send(ServerMessage{Type: EvtAssistantMessage, Content: final})
}

func (c *Connection) handleTimeUpdate(msg ClientMessage) {
	if c.sessionID == "" {
		c.sendError(ErrConflict, "no active session")
		return
	}
	_ = c.deps.Store.SetTimer(c.sessionID, msg.TimeRemaining)
}

func (c *Connection) handleTimeUp(msg ClientMessage) {
	if c.sessionID == "" {
		c.sendError(ErrConflict, "no active session")
		return
	}
	if msg.Code != "" {
		_ = c.deps.Store.SetCode(c.sessionID, msg.Code)
	}
	_ = c.deps.Store.SetInterviewPhase(c.sessionID, "review")
	c.send(ServerMessage{Type: EvtReviewPhaseStarted, SessionID: c.sessionID})
}

func (c *Connection) handleEndSession() {
	c.endCurrentSessionLocked()
}

// endCurrentSessionLocked finalizes and releases any session this
// connection currently owns. Caller must hold c.mu.
func (c *Connection) endCurrentSessionLocked() {
	if c.sessionID == "" {
		return
	}
	_ = c.deps.Store.End(c.sessionID)
	if c.adapter != nil {
		c.adapter.End()
	}
	if c.adapterWorkDir != "" {
		_ = os.RemoveAll(c.adapterWorkDir)
	}
	c.adapter = nil
	c.sessionID = ""
	c.adapterWorkDir = ""
}

// Cleanup runs the exit sequence on disconnect (spec §4.E step 4):
// park the adapter if still open so the session can be reclaimed
// within the registry's TTL, or finalize the durable session only
// when there is nothing to park. A bare disconnect is not one of
// spec §3's terminal events (explicit end, TTL expiry, server
// shutdown), so parking must not mark the session as ended, or
// latest-resumable would stop seeing it. Each step is independently
// fault-isolated.
func (c *Connection) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return
	}

	if c.adapter != nil {
		a, sessionID := c.adapter, c.sessionID
		safeCall(func() { c.deps.Registry.Park(sessionID, a) })
	} else {
		safeCall(func() { _ = c.deps.Store.End(c.sessionID) })
	}

	c.adapter = nil
	c.sessionID = ""
	c.adapterWorkDir = ""
}

func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: panic during cleanup step: %v", r)
		}
	}()
	fn()
}

func (c *Connection) send(msg ServerMessage) {
	if err := c.sender.Send(msg); err != nil {
		log.Printf("orchestrator: send failed: %v", err)
	}
}

func (c *Connection) sendError(code, message string) {
	c.send(ServerMessage{Type: EvtError, ErrCode: code, ErrMsg: message})
}

func toWireHistory(h []store.ChatMessage) []ChatEntry {
	out := make([]ChatEntry, len(h))
	for i, m := range h {
		out[i] = ChatEntry{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp.Format(time.RFC3339)}
	}
	return out
}
