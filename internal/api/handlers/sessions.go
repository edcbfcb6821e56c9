// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cobaltlab/tutorserver/internal/pathsafe"
	"github.com/cobaltlab/tutorserver/internal/store"
)

// SessionsHandler serves read/delete access to the Durable Session
// Store over HTTP (spec §4.B, §6). Session creation and mutation goes
// through the WebSocket protocol in internal/orchestrator, which owns
// a session's lifecycle while a client is connected.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler builds a SessionsHandler over st.
func NewSessionsHandler(st *store.Store) *SessionsHandler {
	return &SessionsHandler{store: st}
}

// List returns every session's summary, ordered by start time, oldest
// first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		WriteError(w, statusForCode(ErrStoreIO), ErrStoreIO, "could not list sessions")
		return
	}
	WriteJSON(w, http.StatusOK, summaries)
}

// Get returns one full session record.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !pathsafe.ValidSessionID(id) {
		WriteError(w, statusForCode(ErrValidation), ErrValidation, "malformed session id")
		return
	}

	s, err := h.store.Get(id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s)
}

// Delete removes a session record permanently.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !pathsafe.ValidSessionID(id) {
		WriteError(w, statusForCode(ErrValidation), ErrValidation, "malformed session id")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type latestResumableResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Found     bool   `json:"found"`
}

// LatestResumable reports the most recently started unended session
// for a problem id, for "continue where I left off" UIs.
func (h *SessionsHandler) LatestResumable(w http.ResponseWriter, r *http.Request) {
	problemID := r.URL.Query().Get("problem_id")
	if problemID == "" {
		WriteError(w, statusForCode(ErrValidation), ErrValidation, "problem_id is required")
		return
	}

	id, found, err := h.store.LatestResumable(problemID)
	if err != nil {
		WriteError(w, statusForCode(ErrStoreIO), ErrStoreIO, "could not search sessions")
		return
	}
	WriteJSON(w, http.StatusOK, latestResumableResponse{SessionID: id, Found: found})
}

func (h *SessionsHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch err {
	case store.ErrNotFound:
		WriteError(w, statusForCode(ErrNotFound), ErrNotFound, "session not found")
	case store.ErrCorrupt:
		WriteError(w, statusForCode(ErrStoreCorrupt), ErrStoreCorrupt, "session record is corrupt")
	default:
		WriteError(w, statusForCode(ErrStoreIO), ErrStoreIO, "store error")
	}
}
