// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThemedEdits/SignUp/internal/auth"
)

// Default admin credentials
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"
)

// AdminSeed describes the bootstrap administrator.
type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// DefaultAdminSeed returns the built-in bootstrap administrator.
func DefaultAdminSeed() AdminSeed {
	return AdminSeed{
		Username: DefaultAdminUsername,
		Email:    DefaultAdminEmail,
		Password: DefaultAdminPassword,
	}
}

// Seed creates the bootstrap administrator when the store has no admin yet.
func Seed(ctx context.Context, q *Queries, hasher auth.Hasher, admin AdminSeed) error {
	if admin.Password == DefaultAdminPassword {
		slog.Warn("bootstrap admin uses the default password, change it before exposing this deployment",
			"username", admin.Username)
	}

	exists, err := q.HasAdmin(ctx)
	if err != nil {
		return fmt.Errorf("checking for admin user: %w", err)
	}
	if exists {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}

	passwordHash, err := hasher.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := q.CreateUser(ctx, CreateUserParams{
		Username:     admin.Username,
		Email:        admin.Email,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Another instance may have seeded concurrently.
			exists, checkErr := q.HasAdmin(ctx)
			if checkErr == nil && exists {
				slog.Info("admin user created concurrently, skipping seed")
				return nil
			}
			return fmt.Errorf("creating admin user: username %q or email %q taken by a non-admin: %w",
				admin.Username, admin.Email, err)
		}
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"username", user.Username,
		"email", user.Email,
	)

	return nil
}
