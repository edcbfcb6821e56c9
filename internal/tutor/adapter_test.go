// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package tutor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoBackendScript is a minimal stand-in tutor backend: for every
// stdin line it reads, it writes one "text" event followed by one
// "final" event. Exercising Adapter against a real subprocess follows
// the teacher's own process_test.go style (real `sh`/`sleep`
// invocations rather than a mocked exec.Cmd).
const echoBackendScript = `
while IFS= read -r line; do
  printf '{"type":"text","text":"echo: %s"}\n' "ok"
  printf '{"type":"final","text":"done","conversation_id":"conv-1"}\n'
done
`

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	return New("0123456789abcdef", t.TempDir(), []string{"sh", "-c", echoBackendScript})
}

func TestAdapterStartAndChat(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.Start(context.Background()))
	defer a.End()

	ch, err := a.Chat(context.Background(), "hello", "print(1)")
	require.NoError(t, err)

	var final Chunk
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				t.Fatal("channel closed before final chunk")
			}
			if c.Type == ChunkFinal {
				final = c
				goto done
			}
		case <-timeout:
			t.Fatal("timed out waiting for final chunk")
		}
	}
done:
	assert.Equal(t, "done", final.Text)
	assert.Equal(t, "conv-1", final.ConversationID)
}

func TestAdapterRejectsConcurrentChat(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.Start(context.Background()))
	defer a.End()

	_, err := a.Chat(context.Background(), "first", "")
	require.NoError(t, err)

	_, err = a.Chat(context.Background(), "second", "")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestAdapterStartIsIdempotent(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.Start(context.Background()))
	defer a.End()
	require.NoError(t, a.Start(context.Background()))
	assert.True(t, a.Alive())
}

func TestAdapterEndIsIdempotent(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, a.Start(context.Background()))
	a.End()
	assert.NotPanics(t, func() { a.End() })
	assert.False(t, a.Alive())
}

func TestAdapterSpawnFailure(t *testing.T) {
	a := New("0123456789abcdef", t.TempDir(), nil)
	err := a.Start(context.Background())
	assert.ErrorIs(t, err, ErrSpawnFailed)
}
