// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobaltlab/tutorserver/internal/authsvc"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/registry"
	"github.com/cobaltlab/tutorserver/internal/sandbox"
	"github.com/cobaltlab/tutorserver/internal/store"
)

func newTestRouter(t *testing.T, password string) (http.Handler, Dependencies) {
	t.Helper()

	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	problemsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(problemsDir, "two-sum.json"), []byte(`{
		"id": "two-sum",
		"title": "Two Sum",
		"difficulty": "easy",
		"entry_point": "solve",
		"tests": [{"num": 1, "input": [1,2], "expected": 3}]
	}`), 0644))
	catalog, err := problems.Load(problemsDir)
	require.NoError(t, err)

	deps := Dependencies{
		Store:         st,
		Registry:      registry.New(st, 0, 10),
		Catalog:       catalog,
		Executor:      sandbox.New(t.TempDir(), sandbox.Limits{CPUSeconds: 5, MemoryMB: 128}),
		Auth:          authsvc.New(password),
		WorkspacesDir: t.TempDir(),
		BackendCmd:    []string{"sh", "-c", "true"},
	}
	return NewRouter(deps), deps
}

func TestAuthStatusReflectsPassword(t *testing.T) {
	router, _ := newTestRouter(t, "hunter2")

	req := httptest.NewRequest("GET", "/api/auth/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"auth_required":true`)
}

func TestProtectedRouteRejectsMissingToken(t *testing.T) {
	router, _ := newTestRouter(t, "hunter2")

	req := httptest.NewRequest("GET", "/api/problems", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginThenListProblems(t *testing.T) {
	router, _ := newTestRouter(t, "hunter2")

	body, _ := json.Marshal(map[string]string{"password": "hunter2"})
	req := httptest.NewRequest("POST", "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var loginResp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Data.Token)

	req = httptest.NewRequest("GET", "/api/problems", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Data.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "two-sum")
}

func TestGetUnknownProblemReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest("GET", "/api/problems/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRunExecutesAgainstCatalogProblem(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	router, _ := newTestRouter(t, "")

	body, _ := json.Marshal(map[string]string{"code": "def solve(a, b): return a + b", "problem_id": "two-sum"})
	req := httptest.NewRequest("POST", "/api/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsListAndGet(t *testing.T) {
	router, deps := newTestRouter(t, "")

	s, err := deps.Store.Create("two-sum", store.ModeLearning)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), s.ID)

	req = httptest.NewRequest("GET", "/api/sessions/"+s.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionsGetUnknownIDReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest("GET", "/api/sessions/0000000000000000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionsDelete(t *testing.T) {
	router, deps := newTestRouter(t, "")

	s, err := deps.Store.Create("two-sum", store.ModeLearning)
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/sessions/"+s.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = deps.Store.Get(s.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
