// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ThemedEdits/SignUp/internal/middleware"
	"github.com/ThemedEdits/SignUp/internal/service"
)

// AdminHandler handles user management for admins.
type AdminHandler struct {
	svc AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AuthService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, map[string]any{"users": users})
}

// DeleteUser handles DELETE /api/admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, service.ValidationError(service.MsgInvalidUserID))
		return
	}

	if err := h.svc.DeleteUser(r.Context(), middleware.GetUserID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONSuccess(w, nil)
}
