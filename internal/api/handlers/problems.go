// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cobaltlab/tutorserver/internal/problems"
)

// ProblemsHandler serves the read-only problem catalog (spec §4, §6).
type ProblemsHandler struct {
	catalog *problems.Catalog
}

// NewProblemsHandler builds a ProblemsHandler over catalog.
func NewProblemsHandler(catalog *problems.Catalog) *ProblemsHandler {
	return &ProblemsHandler{catalog: catalog}
}

// List returns every problem summary (no test cases — spec §6 "omits
// the test cases, problem-solving spoilers").
func (h *ProblemsHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.catalog.List())
}

// Get returns one full problem, including its test cases, since the
// editor needs them to render example I/O.
func (h *ProblemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, ok := h.catalog.Get(id)
	if !ok {
		WriteError(w, statusForCode(ErrNotFound), ErrNotFound, "unknown problem")
		return
	}
	WriteJSON(w, http.StatusOK, p)
}
