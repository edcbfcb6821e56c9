// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package pathsafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("0123456789abcdef"))
	assert.False(t, ValidSessionID("0123456789ABCDEF"))
	assert.False(t, ValidSessionID("short"))
	assert.False(t, ValidSessionID("../../../etc/passwd"))
	assert.False(t, ValidSessionID("0123456789abcdef/../x"))
}

func TestSessionFileRejectsBadID(t *testing.T) {
	_, err := SessionFile("/tmp/sessions", "..%2F..%2Fetc%2Fpasswd")
	require.Error(t, err)

	_, err = SessionFile("/tmp/sessions", "../../etc/passwd")
	require.Error(t, err)
}

func TestSessionFileAcceptsValidID(t *testing.T) {
	path, err := SessionFile("/tmp/sessions", "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sessions/0123456789abcdef.json", path)
}

func TestWorkspaceDirScopesUnderBase(t *testing.T) {
	path, err := WorkspaceDir("/tmp/workspaces", "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/workspaces/0123456789abcdef", path)
}

func TestValidProblemID(t *testing.T) {
	assert.True(t, ValidProblemID("two-sum"))
	assert.False(t, ValidProblemID(""))
	assert.False(t, ValidProblemID("../escape"))
	assert.False(t, ValidProblemID("has/slash"))
}
