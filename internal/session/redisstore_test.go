// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("SIGNUP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: SIGNUP_TEST_REDIS_URL not set")
	}
	return url
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := skipIfNoRedis(t)

	opts := DefaultRedisOptions()
	opts.URL = url
	opts.Prefix = "signup:test:" + t.Name() + ":"
	store, err := NewRedisStore(opts)
	if err != nil {
		t.Fatalf("failed to create Redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRedisStore_RequiresURL(t *testing.T) {
	if _, err := NewRedisStore(RedisOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewRedisStore(RedisOptions{URL: "not-a-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestRedisStore_CommitFindDelete(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.CommitCtx(ctx, "tok", []byte("data"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("CommitCtx failed: %v", err)
	}

	b, found, err := store.FindCtx(ctx, "tok")
	if err != nil {
		t.Fatalf("FindCtx failed: %v", err)
	}
	if !found || string(b) != "data" {
		t.Errorf("FindCtx = %q, %v; want data, true", b, found)
	}

	all, err := store.AllCtx(ctx)
	if err != nil {
		t.Fatalf("AllCtx failed: %v", err)
	}
	if string(all["tok"]) != "data" {
		t.Errorf("AllCtx missing token: %v", all)
	}

	if err := store.DeleteCtx(ctx, "tok"); err != nil {
		t.Fatalf("DeleteCtx failed: %v", err)
	}
	if _, found, _ := store.FindCtx(ctx, "tok"); found {
		t.Error("token still present after delete")
	}
}

func TestRedisStore_PastExpiryDeletes(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	_ = store.CommitCtx(ctx, "old", []byte("x"), time.Now().Add(time.Minute))
	if err := store.CommitCtx(ctx, "old", []byte("x"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("CommitCtx failed: %v", err)
	}
	if _, found, _ := store.FindCtx(ctx, "old"); found {
		t.Error("expired session still stored")
	}
}

func TestRedisStore_Manager(t *testing.T) {
	store := newTestRedisStore(t)
	m := New(Config{IsDev: true}, store)
	h := testHandler(m)

	cookie := sessionCookie(t, doRequest(h, "/login?id=5&admin=1", nil), CookieName)
	if rec := doRequest(h, "/me", cookie); rec.Code != http.StatusOK || rec.Body.String() != "5 true" {
		t.Fatalf("/me = %d %q", rec.Code, rec.Body.String())
	}

	n, err := m.DestroyUser(context.Background(), 5)
	if err != nil {
		t.Fatalf("DestroyUser failed: %v", err)
	}
	if n != 1 {
		t.Errorf("destroyed %d, want 1", n)
	}
	if rec := doRequest(h, "/me", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("session survived DestroyUser: %d", rec.Code)
	}
}

func TestRedisStore_Closed(t *testing.T) {
	store := newTestRedisStore(t)
	_ = store.Close()

	if _, _, err := store.FindCtx(context.Background(), "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
