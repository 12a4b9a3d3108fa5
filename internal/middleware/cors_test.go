// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}, AllowCredentials: true}

	tests := []struct {
		name            string
		method          string
		origin          string
		preflight       bool
		wantAllowOrigin string
		wantStatus      int
		wantNextCalled  bool
	}{
		{"no origin", http.MethodGet, "", false, "", http.StatusOK, true},
		{"allowed origin", http.MethodPost, "http://localhost:3000", false, "http://localhost:3000", http.StatusOK, true},
		{"disallowed origin", http.MethodPost, "http://evil.example", false, "", http.StatusOK, true},
		{"preflight", http.MethodOptions, "http://localhost:3000", true, "http://localhost:3000", http.StatusNoContent, false},
		{"preflight disallowed", http.MethodOptions, "http://evil.example", true, "", http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			h := CORS(cfg)(okHandler(&called))

			req := httptest.NewRequest(tt.method, "/api/login", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllowOrigin)
			}
			if rr.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if called != tt.wantNextCalled {
				t.Errorf("next called = %v, want %v", called, tt.wantNextCalled)
			}
			if tt.wantAllowOrigin != "" && rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("expected Allow-Credentials for allowed origin")
			}
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	var called bool
	h := CORS(CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 600})(okHandler(&called))

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/users/1", nil)
	req.Header.Set("Origin", "http://other.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Max-Age") != "600" {
		t.Errorf("Max-Age = %q, want 600", rr.Header().Get("Access-Control-Max-Age"))
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Allow-Methods")
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("Allow-Credentials set although disabled")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:3000/", "https://App.Example.com"}

	if !isOriginAllowed(allowed, "http://localhost:3000") {
		t.Error("trailing slash in config should still match")
	}
	if !isOriginAllowed(allowed, "https://app.example.com") {
		t.Error("origin match should be case-insensitive")
	}
	if isOriginAllowed(allowed, "http://localhost:3001") {
		t.Error("different port should not match")
	}
}
