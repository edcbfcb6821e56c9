// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cobaltlab/tutorserver/internal/pathsafe"
	"github.com/cobaltlab/tutorserver/internal/problems"
	"github.com/cobaltlab/tutorserver/internal/sandbox"
	"github.com/cobaltlab/tutorserver/internal/store"
)

// ExecutionHandler serves the run/submit endpoints (spec §6, §4.A),
// invoking the Sandboxed Executor in the requested mode.
type ExecutionHandler struct {
	executor      *sandbox.Executor
	catalog       *problems.Catalog
	store         *store.Store
	workspacesDir string
}

// NewExecutionHandler builds an ExecutionHandler over its
// collaborators.
func NewExecutionHandler(executor *sandbox.Executor, catalog *problems.Catalog, st *store.Store, workspacesDir string) *ExecutionHandler {
	return &ExecutionHandler{executor: executor, catalog: catalog, store: st, workspacesDir: workspacesDir}
}

type runRequest struct {
	Code      string `json:"code"`
	ProblemID string `json:"problem_id"`
}

// Run invokes the executor in scratch (non-scored) mode.
func (h *ExecutionHandler) Run(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, sandbox.ModeRun)
}

// Submit invokes the executor in scored mode, updating the problem's
// attempt and solve counters (spec §6 "as above, plus updates solve
// counter on all-pass").
func (h *ExecutionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.execute(w, r, sandbox.ModeSubmit)
}

func (h *ExecutionHandler) execute(w http.ResponseWriter, r *http.Request, mode sandbox.Mode) {
	var req runRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	problem, ok := h.catalog.Get(req.ProblemID)
	if !ok {
		WriteError(w, statusForCode(ErrNotFound), ErrNotFound, "unknown problem")
		return
	}

	scratchID, err := store.NewSessionID()
	if err != nil {
		WriteError(w, statusForCode(ErrInternal), ErrInternal, "could not allocate workspace")
		return
	}
	workDir, err := pathsafe.WorkspaceDir(h.workspacesDir, scratchID)
	if err != nil {
		WriteError(w, statusForCode(ErrInternal), ErrInternal, "could not allocate workspace")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := h.executor.Run(ctx, workDir, req.Code, problem, mode)
	if err != nil {
		log.Printf("api: execute %s: %v", req.ProblemID, err)
		WriteError(w, statusForCode(ErrExecutorRuntime), ErrExecutorRuntime, "execution failed")
		return
	}

	if mode == sandbox.ModeSubmit {
		if err := h.store.RecordAttempt(req.ProblemID); err != nil {
			log.Printf("api: record attempt for %s: %v", req.ProblemID, err)
		}
		if result.Failed == 0 && result.Passed > 0 {
			if err := h.store.RecordSolve(req.ProblemID); err != nil {
				log.Printf("api: record solve for %s: %v", req.ProblemID, err)
			}
		}
	}

	WriteJSON(w, http.StatusOK, result)
}
