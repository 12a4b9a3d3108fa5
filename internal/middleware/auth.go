// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request handling.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ThemedEdits/SignUp/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeySession holds the session.Data of an authenticated request.
const ContextKeySession ContextKey = "session"

// Response messages written by the guards.
const (
	msgNotAuthenticated = "Not authenticated"
	msgForbidden        = "Forbidden"
)

// SessionLoader reads the authenticated session of a request.
type SessionLoader interface {
	Load(ctx context.Context) (session.Data, bool)
}

// RequireSession rejects requests without an authenticated session with 401
// and stores the session data in the request context otherwise.
// The session manager's LoadAndSave must run before it.
func RequireSession(sessions SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, ok := sessions.Load(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, msgNotAuthenticated)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects sessions without the admin flag with 403. It must run
// after RequireSession. The flag is the one cached at login, so a revoked
// admin keeps access until the session ends.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, ok := GetSession(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, msgNotAuthenticated)
				return
			}

			if !data.IsAdmin {
				slog.WarnContext(r.Context(), "access denied",
					"user_id", data.UserID,
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeJSONError(w, http.StatusForbidden, msgForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetSession returns the session data stored by RequireSession.
func GetSession(r *http.Request) (session.Data, bool) {
	data, ok := r.Context().Value(ContextKeySession).(session.Data)
	return data, ok
}

// GetUserID returns the authenticated user's ID, or 0.
func GetUserID(r *http.Request) int64 {
	data, ok := GetSession(r)
	if !ok {
		return 0
	}
	return data.UserID
}

// writeJSONError writes the API error envelope.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
