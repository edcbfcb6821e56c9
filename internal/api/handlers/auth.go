// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/cobaltlab/tutorserver/internal/authsvc"
)

// AuthHandler serves the login and auth-status endpoints (spec §6).
type AuthHandler struct {
	svc *authsvc.Service
}

// NewAuthHandler builds an AuthHandler over svc.
func NewAuthHandler(svc *authsvc.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges the configured password for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	addr := r.RemoteAddr
	if h.svc.RateLimited(addr) {
		WriteError(w, statusForCode(ErrAuthRejected), ErrAuthRejected, "too many attempts, try again later")
		return
	}

	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	token, ok := h.svc.Login(addr, req.Password)
	if !ok {
		WriteError(w, statusForCode(ErrAuthRejected), ErrAuthRejected, "invalid password")
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}

type authStatusResponse struct {
	AuthRequired bool `json:"auth_required"`
}

// Status reports whether the server requires a login token at all, so
// a client can skip the login screen when TUTOR_PASSWORD is unset.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, authStatusResponse{AuthRequired: h.svc.Enabled()})
}
