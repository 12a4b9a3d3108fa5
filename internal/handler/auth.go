// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"

	"github.com/ThemedEdits/SignUp/internal/service"
)

// AuthService is the account API used by the handlers.
type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (service.AuthResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (service.PublicUser, error)
	ListUsers(ctx context.Context) ([]service.PublicUser, error)
	DeleteUser(ctx context.Context, actorID, id int64) error
}

// AuthHandler handles signup, login, logout and the current user.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Signup handles POST /api/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeRequest(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONSuccess(w, map[string]any{
		"userId":  res.UserID,
		"isAdmin": res.IsAdmin,
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeRequest(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONSuccess(w, map[string]any{
		"userId":  res.UserID,
		"isAdmin": res.IsAdmin,
	})
}

// Logout handles POST /api/logout. It succeeds without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// CurrentUser handles GET /api/user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"user": user})
}
