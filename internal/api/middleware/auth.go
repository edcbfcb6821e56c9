// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"net/http"
	"strings"
)

// TokenValidator checks a bearer token against the authsvc.Service
// without this package importing it directly, keeping the middleware
// package dependency-free the way the teacher's logging/recovery/cors
// middleware are.
type TokenValidator interface {
	Enabled() bool
	Validate(token string) bool
}

// RequireAuth rejects requests without a valid bearer token when auth
// is enabled (spec §6: HTTP endpoints honor the same login as the
// WebSocket protocol).
func RequireAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || !v.Validate(token) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"code":"AUTH_REJECTED","message":"missing or invalid token"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
