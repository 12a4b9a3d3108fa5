// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// recordingHandler is a slog.Handler that keeps the records it receives.
type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func attrsOf(r slog.Record) map[string]string {
	out := make(map[string]string)
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.String()
		return true
	})
	return out
}

// requestContext runs chi's RequestID middleware and returns the context it
// produces.
func requestContext(t *testing.T) context.Context {
	t.Helper()
	var ctx context.Context
	h := chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	return ctx
}

func TestRequestIDHandler_AddsRequestID(t *testing.T) {
	rec := &recordingHandler{}
	logger := slog.New(NewRequestIDHandler(rec))

	ctx := requestContext(t)
	logger.InfoContext(ctx, "user logged in", "user_id", 7)

	if len(rec.records) != 1 {
		t.Fatalf("got %d records, want 1", len(rec.records))
	}
	attrs := attrsOf(rec.records[0])
	if attrs["request_id"] == "" || attrs["request_id"] != chimw.GetReqID(ctx) {
		t.Errorf("request_id = %q, want %q", attrs["request_id"], chimw.GetReqID(ctx))
	}
	if attrs["user_id"] != "7" {
		t.Errorf("user_id = %q, want 7", attrs["user_id"])
	}
}

func TestRequestIDHandler_NoRequestID(t *testing.T) {
	rec := &recordingHandler{}
	logger := slog.New(NewRequestIDHandler(rec))

	logger.Info("starting server")

	if _, ok := attrsOf(rec.records[0])["request_id"]; ok {
		t.Error("request_id added without a request context")
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.DebugContext(context.Background(), "hidden")
	logger.InfoContext(requestContext(t), "access denied", "path", "/api/admin/users")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["msg"] != "access denied" || entry["path"] != "/api/admin/users" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["request_id"]; !ok {
		t.Error("request_id missing")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "debug", "text").With("component", "store")

	logger.Debug("running migrations")

	out := buf.String()
	if !strings.Contains(out, "msg=\"running migrations\"") || !strings.Contains(out, "component=store") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
