// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Every new connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Create sessions table required by sqlite3store
	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testHandler exposes the manager operations over HTTP so tests can drive
// them with cookies, the same way the API does.
func testHandler(m *Manager) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err := m.Create(r.Context(), id, r.URL.Query().Get("admin") == "1"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		data, ok := m.Load(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprintf(w, "%d %t", data.UserID, data.IsAdmin)
	})
	mux.HandleFunc("/expiry", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(m.Expiry(r.Context()).Format(time.RFC3339Nano)))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := m.Destroy(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return m.LoadAndSave(mux)
}

func doRequest(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)

	sm := New(Config{IsDev: true}, NewSQLiteStore(db))

	if sm == nil {
		t.Fatal("expected session manager to be non-nil")
	}
	if sm.Store == nil {
		t.Error("expected Store to be initialized")
	}
}

func TestNew_DevMode(t *testing.T) {
	sm := New(Config{IsDev: true}, NewMemoryStore())

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name != CookieName {
		t.Errorf("expected %q cookie name in dev mode, got %q", CookieName, sm.Cookie.Name)
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(Config{IsDev: false}, NewMemoryStore())

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != SecureCookieName {
		t.Errorf("expected %s cookie name, got %q", SecureCookieName, sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("expected Cookie.Path = '/', got %q", sm.Cookie.Path)
	}
}

func TestNew_SessionSettings(t *testing.T) {
	sm := New(Config{IsDev: true}, NewMemoryStore())

	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
	}
	if sm.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0", sm.IdleTimeout)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite = Lax, got %v", sm.Cookie.SameSite)
	}
}

func TestCreateAndLoad(t *testing.T) {
	stores := map[string]*Manager{
		"sqlite": New(Config{IsDev: true}, NewSQLiteStore(setupTestDB(t))),
		"memory": New(Config{IsDev: true}, NewMemoryStore()),
	}

	for name, m := range stores {
		t.Run(name, func(t *testing.T) {
			h := testHandler(m)

			rec := doRequest(h, "/me", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("anonymous /me status = %d, want 401", rec.Code)
			}

			rec = doRequest(h, "/login?id=7&admin=1", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("login status = %d", rec.Code)
			}
			cookie := sessionCookie(t, rec, CookieName)
			if !cookie.HttpOnly {
				t.Error("session cookie is not HttpOnly")
			}

			rec = doRequest(h, "/me", cookie)
			if rec.Code != http.StatusOK {
				t.Fatalf("/me status = %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != "7 true" {
				t.Errorf("/me body = %q, want %q", got, "7 true")
			}
		})
	}
}

func TestCreate_RenewsToken(t *testing.T) {
	m := New(Config{IsDev: true}, NewMemoryStore())
	h := testHandler(m)

	first := sessionCookie(t, doRequest(h, "/login?id=1", nil), CookieName)

	// Logging in again from the same client replaces the session.
	rec := doRequest(h, "/login?id=2", first)
	second := sessionCookie(t, rec, CookieName)
	if second.Value == first.Value {
		t.Fatal("token was not renewed")
	}

	if rec := doRequest(h, "/me", first); rec.Code != http.StatusUnauthorized {
		t.Errorf("old token still valid: status %d", rec.Code)
	}
	rec = doRequest(h, "/me", second)
	if rec.Body.String() != "2 false" {
		t.Errorf("/me body = %q, want %q", rec.Body.String(), "2 false")
	}
}

func TestExpiry(t *testing.T) {
	m := New(Config{IsDev: true}, NewMemoryStore())
	h := testHandler(m)

	before := time.Now()
	cookie := sessionCookie(t, doRequest(h, "/login?id=1", nil), CookieName)

	rec := doRequest(h, "/expiry", cookie)
	expiry, err := time.Parse(time.RFC3339Nano, rec.Body.String())
	if err != nil {
		t.Fatalf("parsing expiry: %v", err)
	}
	if expiry.Before(before.Add(DefaultLifetime-time.Minute)) || expiry.After(time.Now().Add(DefaultLifetime)) {
		t.Errorf("expiry %v not about 24h from now", expiry)
	}
}

func TestExpiredSessionNotLoaded(t *testing.T) {
	m := New(Config{IsDev: true, Lifetime: 50 * time.Millisecond}, memstore.NewWithCleanupInterval(0))
	h := testHandler(m)

	cookie := sessionCookie(t, doRequest(h, "/login?id=1", nil), CookieName)
	time.Sleep(100 * time.Millisecond)

	if rec := doRequest(h, "/me", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("expired session loaded: status %d", rec.Code)
	}
}

func TestDestroy(t *testing.T) {
	m := New(Config{IsDev: true}, NewMemoryStore())
	h := testHandler(m)

	cookie := sessionCookie(t, doRequest(h, "/login?id=3", nil), CookieName)

	rec := doRequest(h, "/logout", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	expired := sessionCookie(t, rec, CookieName)
	if expired.MaxAge >= 0 {
		t.Errorf("logout cookie MaxAge = %d, want negative", expired.MaxAge)
	}

	if rec := doRequest(h, "/me", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("session still valid after logout: status %d", rec.Code)
	}

	// Destroying twice, or without any session, is fine.
	if rec := doRequest(h, "/logout", cookie); rec.Code != http.StatusOK {
		t.Errorf("second logout status = %d", rec.Code)
	}
	if rec := doRequest(h, "/logout", nil); rec.Code != http.StatusOK {
		t.Errorf("anonymous logout status = %d", rec.Code)
	}
}

func TestDestroyUser(t *testing.T) {
	stores := map[string]*Manager{
		"sqlite": New(Config{IsDev: true}, NewSQLiteStore(setupTestDB(t))),
		"memory": New(Config{IsDev: true}, NewMemoryStore()),
	}

	for name, m := range stores {
		t.Run(name, func(t *testing.T) {
			h := testHandler(m)

			a1 := sessionCookie(t, doRequest(h, "/login?id=10", nil), CookieName)
			a2 := sessionCookie(t, doRequest(h, "/login?id=10", nil), CookieName)
			b := sessionCookie(t, doRequest(h, "/login?id=11", nil), CookieName)

			n, err := m.DestroyUser(context.Background(), 10)
			if err != nil {
				t.Fatalf("DestroyUser: %v", err)
			}
			if n != 2 {
				t.Errorf("destroyed %d sessions, want 2", n)
			}

			for _, c := range []*http.Cookie{a1, a2} {
				if rec := doRequest(h, "/me", c); rec.Code != http.StatusUnauthorized {
					t.Errorf("session of deleted user still valid: status %d", rec.Code)
				}
			}
			if rec := doRequest(h, "/me", b); rec.Code != http.StatusOK {
				t.Errorf("unrelated session destroyed: status %d", rec.Code)
			}
		})
	}
}
