// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveHTTP(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, status})
}

func TestMetrics_RoutePattern(t *testing.T) {
	rec := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Delete("/api/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodDelete, "/api/admin/users/17", nil),
		httptest.NewRequest(http.MethodGet, "/health", nil),
		httptest.NewRequest(http.MethodGet, "/nope", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	want := []observation{
		{http.MethodDelete, "/api/admin/users/{id}", http.StatusNotFound},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}
	if len(rec.obs) != len(want) {
		t.Fatalf("observations = %v, want %v", rec.obs, want)
	}
	for i := range want {
		if rec.obs[i] != want[i] {
			t.Errorf("observation[%d] = %+v, want %+v", i, rec.obs[i], want[i])
		}
	}
}
