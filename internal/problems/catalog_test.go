// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package problems

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadMixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "two-sum.json", `{
		"id": "two-sum",
		"title": "Two Sum",
		"difficulty": "easy",
		"tags": ["array", "hash-map"],
		"entry_point": "two_sum",
		"tests": [{"num": 1, "input": [[2,7,11,15],9], "expected": [0,1]}]
	}`)
	writeFile(t, dir, "reverse.hjson", `{
		# reverse a string
		id: reverse-string
		title: Reverse String
		difficulty: easy
		entry_point: reverse_string
		tests: [
			{num: 1, input: ["abc"], expected: "cba"}
		]
	}`)

	cat, err := Load(dir)
	require.NoError(t, err)

	list := cat.List()
	require.Len(t, list, 2)
	assert.Equal(t, "reverse-string", list[0].ID) // sorted
	assert.Equal(t, "two-sum", list[1].ID)

	p, ok := cat.Get("two-sum")
	require.True(t, ok)
	assert.Equal(t, "two_sum", p.EntryPoint)
	require.Len(t, p.Tests, 1)

	assert.True(t, cat.Has("reverse-string"))
	assert.False(t, cat.Has("missing"))
}

func TestLoadRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": "dup", "entry_point": "f"}`)
	writeFile(t, dir, "b.json", `{"id": "dup", "entry_point": "g"}`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "README.md", "not a problem")
	writeFile(t, dir, "ok.json", `{"id": "ok", "entry_point": "f"}`)

	cat, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, cat.List(), 1)
}
