// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import "net/http"

// Error codes, matching the orchestrator's WebSocket taxonomy (spec §7)
// so a client sees the same vocabulary over HTTP and the WebSocket.
const (
	ErrValidation      = "VALIDATION"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrAuthRejected    = "AUTH_REJECTED"
	ErrPayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrExecutorTimeout = "EXECUTOR_TIMEOUT"
	ErrExecutorSpawn   = "EXECUTOR_SPAWN"
	ErrExecutorRuntime = "EXECUTOR_RUNTIME"
	ErrStoreCorrupt    = "STORE_CORRUPT"
	ErrStoreIO         = "STORE_IO"
	ErrInternal        = "INTERNAL"
)

// statusForCode maps a taxonomy code to its HTTP status, used by every
// handler so the mapping lives in exactly one place.
func statusForCode(code string) int {
	switch code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrAuthRejected:
		return http.StatusUnauthorized
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrExecutorTimeout, ErrExecutorSpawn, ErrExecutorRuntime, ErrStoreCorrupt, ErrStoreIO:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
