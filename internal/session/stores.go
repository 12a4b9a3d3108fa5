// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"database/sql"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"
)

// cleanupInterval is how often expired sessions are purged from stores
// that do not expire entries on their own.
const cleanupInterval = 5 * time.Minute

// NewSQLiteStore returns a session store in the sessions table of db.
func NewSQLiteStore(db *sql.DB) *sqlite3store.SQLite3Store {
	return sqlite3store.NewWithCleanupInterval(db, cleanupInterval)
}

// NewMemoryStore returns a process-local session store.
// Sessions are lost on restart.
func NewMemoryStore() *memstore.MemStore {
	return memstore.NewWithCleanupInterval(cleanupInterval)
}
