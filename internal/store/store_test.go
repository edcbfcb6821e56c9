// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	require.NoError(t, err)
	return st
}

func TestCreateAndGet(t *testing.T) {
	st := newTestStore(t)
	s, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{16}$`, s.ID)

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "two-sum", got.ProblemID)
	assert.Equal(t, ModeLearning, got.Mode)
	assert.True(t, got.Resumable())
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Get("0000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetInvalidIDReturnsNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Get("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageAndSetCode(t *testing.T) {
	st := newTestStore(t)
	s, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)

	require.NoError(t, st.AppendMessage(s.ID, ChatMessage{Role: RoleUser, Content: "hi"}))
	require.NoError(t, st.AppendMessage(s.ID, ChatMessage{Role: RoleAssistant, Content: "hello"}))
	require.NoError(t, st.SetCode(s.ID, "def solve(): pass"))

	got, err := st.Get(s.ID)
	require.NoError(t, err)
	require.Len(t, got.ChatHistory, 2)
	assert.Equal(t, RoleUser, got.ChatHistory[0].Role)
	assert.Equal(t, "def solve(): pass", got.Code)
}

func TestEndIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	s, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)

	require.NoError(t, st.End(s.ID))
	first, err := st.Get(s.ID)
	require.NoError(t, err)
	require.NotNil(t, first.EndedAt)

	require.NoError(t, st.End(s.ID))
	second, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, first.EndedAt.Unix(), second.EndedAt.Unix())
	assert.False(t, second.Resumable())
}

func TestListSkipsCorruptFiles(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)
	_, err = st.Create("reverse-string", ModeLearning)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(st.sessionsDir, "dddddddddddddddd.json"), []byte("{not json"), 0o600))

	summaries, err := st.List()
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestGetCorruptFile(t *testing.T) {
	st := newTestStore(t)
	path := filepath.Join(st.sessionsDir, "cccccccccccccccc.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := st.Get("cccccccccccccccc")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestDeleteRemovesSession(t *testing.T) {
	st := newTestStore(t)
	s, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)

	require.NoError(t, st.Delete(s.ID))
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestResumablePicksNewestUnended(t *testing.T) {
	st := newTestStore(t)
	first, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)
	second, err := st.Create("two-sum", ModeLearning)
	require.NoError(t, err)
	require.NoError(t, st.End(first.ID))

	id, ok, err := st.LatestResumable("two-sum")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, id)
}

func TestLatestResumableNoneFound(t *testing.T) {
	st := newTestStore(t)
	_, ok, err := st.LatestResumable("unknown-problem")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountersMonotonicUnderConcurrency(t *testing.T) {
	st := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.RecordAttempt("two-sum")
			_ = st.RecordSolve("two-sum")
		}()
	}
	wg.Wait()

	counters := st.GetCounters()
	c := counters["two-sum"]
	assert.Equal(t, 20, c.Attempts)
	assert.Equal(t, 20, c.Solves)
	require.NotNil(t, c.FirstSolve)
}
