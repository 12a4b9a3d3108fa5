// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/config"
	"github.com/ThemedEdits/SignUp/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "development",
		DBDriver:        store.DriverSQLite,
		DBDSN:           filepath.Join(t.TempDir(), "nested", "data", "signup.db"),
		SessionStore:    config.SessionStoreSQLite,
		SessionLifetime: time.Hour,
		PasswordHash:    auth.AlgorithmBcrypt,
		BcryptCost:      4,
	}
}

// stubReadPassword replaces readPassword with one returning answers in order.
func stubReadPassword(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("EOF")
		}
		a := answers[i]
		i++
		return []byte(a), nil
	}
}

func TestPromptNewPassword(t *testing.T) {
	stubReadPassword(t, "n3w-secret", "n3w-secret")

	var out bytes.Buffer
	pw, err := promptNewPassword(0, &out)
	require.NoError(t, err)
	assert.Equal(t, "n3w-secret", pw)
	assert.Contains(t, out.String(), "New password:")
	assert.Contains(t, out.String(), "Repeat password:")
}

func TestPromptNewPassword_Mismatch(t *testing.T) {
	stubReadPassword(t, "one-secret", "two-secret")

	_, err := promptNewPassword(0, &bytes.Buffer{})
	assert.ErrorIs(t, err, errPasswordMismatch)
}

func TestPromptNewPassword_ReadError(t *testing.T) {
	stubReadPassword(t)

	_, err := promptNewPassword(0, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestOpenDatabase_CreatesDirectoryAndMigrates(t *testing.T) {
	cfg := testConfig(t)

	db, err := openDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(filepath.Dir(cfg.DBDSN))
	require.NoError(t, err)

	has, err := store.New(db, cfg.DBDriver).HasAdmin(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestChangePassword(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := openDatabase(cfg)
	require.NoError(t, err)
	hasher, err := auth.NewHasher(cfg.PasswordHash, cfg.BcryptCost)
	require.NoError(t, err)
	q := store.New(db, cfg.DBDriver)
	require.NoError(t, store.Seed(ctx, q, hasher, store.DefaultAdminSeed()))
	require.NoError(t, db.Close())

	require.NoError(t, changePassword(ctx, cfg, "admin", "rotated-pw"))

	db, err = openDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	admin, err := store.New(db, cfg.DBDriver).GetUserByUsername(ctx, "admin")
	require.NoError(t, err)

	ok, err := auth.Verify("rotated-pw", admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = auth.Verify(store.DefaultAdminPassword, admin.PasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChangePassword_Errors(t *testing.T) {
	cfg := testConfig(t)

	err := changePassword(context.Background(), cfg, "nobody", "whatever1")
	assert.EqualError(t, err, "User not found")

	err = changePassword(context.Background(), cfg, "admin", "123")
	assert.EqualError(t, err, "Password must be at least 6 characters")
}

func TestNewSessionStore(t *testing.T) {
	cfg := testConfig(t)
	db, err := openDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, kind := range []string{config.SessionStoreSQLite, config.SessionStoreMemory} {
		t.Run(kind, func(t *testing.T) {
			cfg.SessionStore = kind
			st, err := newSessionStore(cfg, db)
			require.NoError(t, err)
			assert.NotNil(t, st.Store)
			assert.Nil(t, st.Check)
			assert.NoError(t, st.Close())
		})
	}

	cfg.SessionStore = "file"
	_, err = newSessionStore(cfg, db)
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	srv := newServer("localhost:3000", nil)

	assert.Equal(t, "localhost:3000", srv.Addr)
	assert.Equal(t, 15*time.Second, srv.ReadTimeout)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 60*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)
	assert.Equal(t, 1<<20, srv.MaxHeaderBytes)
}

func TestVersionInfo(t *testing.T) {
	assert.Equal(t, "signupd dev (commit: unknown, built: unknown)", versionInfo().String())
}
