// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// User is a stored identity record.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Queries runs the user queries against one database dialect.
type Queries struct {
	db     DBTX
	driver string
}

// New creates Queries for db. driver selects placeholder style and how
// generated ids are read back.
func New(db DBTX, driver string) *Queries {
	return &Queries{db: db, driver: driver}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (q *Queries) rebind(query string) string {
	if q.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

const userColumns = `id, username, email, password_hash, is_admin, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

// CreateUserParams holds the columns written by CreateUser.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

const createUser = `INSERT INTO users (username, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`

// CreateUser inserts a user. Uniqueness of username and email is enforced by
// the database; a violation returns an error wrapping ErrDuplicate.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = time.Now().UTC()
	}
	args := []any{arg.Username, arg.Email, arg.PasswordHash, arg.IsAdmin, arg.CreatedAt}

	var id int64
	if q.driver == DriverPostgres {
		if err := q.db.QueryRowContext(ctx, q.rebind(createUser+" RETURNING id"), args...).Scan(&id); err != nil {
			return User{}, translateWriteError("inserting user", err)
		}
	} else {
		res, err := q.db.ExecContext(ctx, createUser, args...)
		if err != nil {
			return User{}, translateWriteError("inserting user", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return User{}, fmt.Errorf("reading user id: %w", err)
		}
	}

	return User{
		ID:           id,
		Username:     arg.Username,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		IsAdmin:      arg.IsAdmin,
		CreatedAt:    arg.CreatedAt,
	}, nil
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ?`

// GetUserByUsername returns the user with the given username or ErrNotFound.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, q.rebind(getUserByUsername), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

// GetUserByID returns the user with the given id or ErrNotFound.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, q.rebind(getUserByID), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("getting user by id: %w", err)
	}
	return u, nil
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY id`

// ListUsers returns all users ordered by id.
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

const deleteUser = `DELETE FROM users WHERE id = ?`

// DeleteUser removes the user with the given id, or returns ErrNotFound.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, q.rebind(deleteUser), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireAffected(res)
}

const countAdmins = `SELECT COUNT(*) FROM users WHERE is_admin = ?`

// CountAdmins returns the number of users with the admin flag set.
func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, q.rebind(countAdmins), true).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}

// HasAdmin reports whether at least one admin exists.
func (q *Queries) HasAdmin(ctx context.Context) (bool, error) {
	n, err := q.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const updateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

// UpdateUserPassword replaces the stored hash of a user.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.db.ExecContext(ctx, q.rebind(updateUserPassword), passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
