// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP surface of the tutor server
// (spec §6): problem catalog browsing, code execution/submission,
// session CRUD, and login — everything outside the WebSocket protocol,
// which lives in internal/orchestrator.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// maxRequestBodyBytes caps every JSON request body this server
// accepts (spec §6: "oversize payload -> 413"). 1 MiB comfortably
// covers a submitted solution plus its surrounding JSON envelope.
const maxRequestBodyBytes = 1 << 20

// decodeJSONBody reads and decodes r.Body into dst, capped at
// maxRequestBodyBytes. On failure it writes the appropriate error
// response itself (413 for an oversize body, 400 for anything else
// that fails to decode) and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, statusForCode(ErrPayloadTooLarge), ErrPayloadTooLarge, "request body too large")
			return false
		}
		WriteError(w, statusForCode(ErrValidation), ErrValidation, "malformed request body")
		return false
	}
	return true
}

// Response is the standard API response envelope.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo contains error details, using the same taxonomy the
// WebSocket protocol reports (spec §7).
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo contains response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes a successful JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	resp := Response{
		Data: data,
		Meta: &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// WriteError writes an error response using the spec §7 error code
// taxonomy.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	resp := Response{
		Error: &ErrorInfo{Code: code, Message: message},
		Meta:  &MetaInfo{Timestamp: time.Now()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
