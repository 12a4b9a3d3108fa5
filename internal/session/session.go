// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session issues, loads and destroys authenticated sessions on top of
// scs. A session holds the user id and the admin flag cached at login time.
package session

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// DefaultLifetime is the absolute session lifetime. Sessions are not extended
// by activity.
const DefaultLifetime = 24 * time.Hour

// Cookie names.
const (
	CookieName       = "signup_session"
	SecureCookieName = "__Host-signup_session"
)

// Session data keys.
const (
	keyUserID    = "user_id"
	keyIsAdmin   = "is_admin"
	keyCreatedAt = "created_at"
)

func init() {
	// created_at is stored as a time.Time inside the gob-encoded session map.
	gob.Register(time.Time{})
}

// Config controls cookie and lifetime settings.
type Config struct {
	// IsDev disables the Secure cookie flag and the __Host- prefix.
	IsDev bool
	// Lifetime defaults to DefaultLifetime.
	Lifetime time.Duration
}

// Data is the authenticated state carried by a session.
type Data struct {
	UserID    int64
	IsAdmin   bool
	CreatedAt time.Time
}

// Manager wraps an scs session manager with the authenticated-session
// operations used by the auth service.
type Manager struct {
	*scs.SessionManager
}

// New creates a session manager backed by store.
func New(cfg Config, store scs.Store) *Manager {
	sm := scs.New()
	sm.Store = store

	sm.Lifetime = cfg.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = DefaultLifetime
	}
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !cfg.IsDev
	if !cfg.IsDev {
		// __Host- requires Secure, Path=/ and no Domain.
		sm.Cookie.Name = SecureCookieName
	}
	sm.ErrorFunc = serverError

	return &Manager{SessionManager: sm}
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "session error", "error", err, "path", r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
}

// Create starts a fresh authenticated session for the request in ctx.
// Any previous session data is discarded and a new token is issued, so the
// old token stops working and the expiry is reset.
func (m *Manager) Create(ctx context.Context, userID int64, isAdmin bool) error {
	if err := m.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if err := m.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	m.Put(ctx, keyUserID, userID)
	m.Put(ctx, keyIsAdmin, isAdmin)
	m.Put(ctx, keyCreatedAt, time.Now().UTC())

	return nil
}

// Load returns the authenticated session for ctx. It reports false when no
// session exists, it has expired, or it carries no user.
func (m *Manager) Load(ctx context.Context) (Data, bool) {
	if !m.Exists(ctx, keyUserID) {
		return Data{}, false
	}
	userID := m.GetInt64(ctx, keyUserID)
	if userID == 0 {
		return Data{}, false
	}
	return Data{
		UserID:    userID,
		IsAdmin:   m.GetBool(ctx, keyIsAdmin),
		CreatedAt: m.GetTime(ctx, keyCreatedAt),
	}, true
}

// Expiry returns when the session in ctx expires.
func (m *Manager) Expiry(ctx context.Context) time.Time {
	return m.Deadline(ctx)
}

// DestroyUser destroys every stored session that belongs to userID and
// returns how many were removed. The store must be iterable.
func (m *Manager) DestroyUser(ctx context.Context, userID int64) (int, error) {
	destroyed := 0
	err := m.Iterate(ctx, func(ctx context.Context) error {
		if m.GetInt64(ctx, keyUserID) != userID {
			return nil
		}
		if err := m.SessionManager.Destroy(ctx); err != nil {
			return err
		}
		destroyed++
		return nil
	})
	if err != nil {
		return destroyed, fmt.Errorf("destroying sessions of user %d: %w", userID, err)
	}
	return destroyed, nil
}
