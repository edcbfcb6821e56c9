// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobaltlab/tutorserver/internal/authsvc"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/registry"
	"github.com/cobaltlab/tutorserver/internal/store"
)

// recordingSender captures every ServerMessage sent to it, for
// assertions, instead of writing to a real network connection.
type recordingSender struct {
	messages []ServerMessage
}

func (s *recordingSender) Send(msg ServerMessage) error {
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) last() ServerMessage {
	if len(s.messages) == 0 {
		return ServerMessage{}
	}
	return s.messages[len(s.messages)-1]
}

func (s *recordingSender) typesSeen() []string {
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Type
	}
	return out
}

const echoBackendScript = `
while IFS= read -r line; do
  printf '{"type":"text","text":"chunk"}\n'
  printf '{"type":"final","text":"final answer","conversation_id":"c1"}\n'
done
`

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	problemsDir := t.TempDir()
	require.NoError(t, writeTestProblem(problemsDir))
	catalog, err := problems.Load(problemsDir)
	require.NoError(t, err)

	return Deps{
		Store:         st,
		Registry:      registry.New(st, 0, 10),
		Catalog:       catalog,
		Auth:          authsvc.New(""),
		WorkspacesDir: t.TempDir(),
		BackendCmd:    []string{"sh", "-c", echoBackendScript},
	}
}

func writeTestProblem(dir string) error {
	return os.WriteFile(filepath.Join(dir, "two-sum.json"), []byte(`{
		"id": "two-sum",
		"title": "Two Sum",
		"difficulty": "easy",
		"entry_point": "solve",
		"tests": [{"num": 1, "input": [1,2], "expected": 3}]
	}`), 0644)
}

func TestHandleAuthDisabledAutoAuthenticates(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")

	closeConn := conn.Handle(context.Background(), ClientMessage{Type: MsgAuth})
	assert.False(t, closeConn)
	assert.True(t, conn.authenticated)
}

func TestHandleMessageBeforeAuthIsRejected(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")

	conn.Handle(context.Background(), ClientMessage{Type: MsgStartSession, ProblemID: "two-sum"})
	assert.Equal(t, EvtError, sender.last().Type)
	assert.Equal(t, ErrAuthRejected, sender.last().ErrCode)
}

func TestStartSessionThenChat(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgStartSession, ProblemID: "two-sum", Mode: "learning"})
	require.Equal(t, EvtSessionStarted, sender.last().Type)
	sessionID := sender.last().SessionID
	require.NotEmpty(t, sessionID)

	conn.Handle(ctx, ClientMessage{Type: MsgMessage, Content: "hi", Code: "print(1)"})

	types := sender.typesSeen()
	assert.Contains(t, types, EvtAssistantChunk)
	assert.Contains(t, types, EvtAssistantMessage)
	assert.Equal(t, "final answer", sender.last().Content)

	s, err := deps.Store.Get(sessionID)
	require.NoError(t, err)
	require.Len(t, s.ChatHistory, 2)
	assert.Equal(t, store.RoleUser, s.ChatHistory[0].Role)
	assert.Equal(t, store.RoleAssistant, s.ChatHistory[1].Role)
	assert.Equal(t, "print(1)", s.Code)
}

func TestStartSessionUnknownProblemIsRejected(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgStartSession, ProblemID: "does-not-exist"})
	assert.Equal(t, EvtError, sender.last().Type)
	assert.Equal(t, ErrNotFound, sender.last().ErrCode)
}

func TestChatWithoutSessionIsConflict(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgMessage, Content: "hi"})
	assert.Equal(t, EvtError, sender.last().Type)
	assert.Equal(t, ErrConflict, sender.last().ErrCode)
}

func TestEndSessionThenResumeSpawnsFresh(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgStartSession, ProblemID: "two-sum"})
	sessionID := sender.last().SessionID

	conn.Handle(ctx, ClientMessage{Type: MsgEndSession})

	conn.Handle(ctx, ClientMessage{Type: MsgResumeSession, SessionID: sessionID})
	assert.Equal(t, EvtSessionResumed, sender.last().Type)
	assert.Equal(t, sessionID, sender.last().SessionID)
	assert.Equal(t, "two-sum", sender.last().ProblemID)
}

func TestResumeUnknownSessionIsNotFound(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgResumeSession, SessionID: "0000000000000000"})
	assert.Equal(t, EvtError, sender.last().Type)
	assert.Equal(t, ErrNotFound, sender.last().ErrCode)
}

func TestTimeUpTransitionsToReviewPhase(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgStartSession, ProblemID: "two-sum"})
	sessionID := sender.last().SessionID

	conn.Handle(ctx, ClientMessage{Type: MsgTimeUp, Code: "final code"})
	assert.Equal(t, EvtReviewPhaseStarted, sender.last().Type)

	s, err := deps.Store.Get(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "review", s.InterviewPhase)
	assert.Equal(t, "final code", s.Code)
}

func TestCleanupParksAdapterForReclaim(t *testing.T) {
	deps := newTestDeps(t)
	sender := &recordingSender{}
	conn := NewConnection(deps, sender, "1.2.3.4")
	ctx := context.Background()

	conn.Handle(ctx, ClientMessage{Type: MsgAuth})
	conn.Handle(ctx, ClientMessage{Type: MsgStartSession, ProblemID: "two-sum"})
	sessionID := sender.last().SessionID

	conn.Cleanup()

	_, ok := deps.Registry.Reclaim(sessionID)
	assert.True(t, ok, "a clean disconnect should park the adapter for reclaim")
}
