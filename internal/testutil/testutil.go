// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/store"
)

// TestDB creates a temporary SQLite database with migrations applied. It is
// closed when the test ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := store.NewDB(store.DriverSQLite, filepath.Join(t.TempDir(), "signup-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DriverSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// FastHasher returns a bcrypt hasher at the minimum cost.
func FastHasher() auth.Hasher {
	return &auth.BcryptHasher{Cost: 4}
}

// SeedAdmin creates the default admin in db and returns the store.
func SeedAdmin(t *testing.T, db *sql.DB) *store.Queries {
	t.Helper()

	q := store.New(db, store.DriverSQLite)
	if err := store.Seed(context.Background(), q, FastHasher(), store.DefaultAdminSeed()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return q
}
