// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/config"
	"github.com/ThemedEdits/SignUp/internal/service"
	"github.com/ThemedEdits/SignUp/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

func runSetPassword(username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	password, err := promptNewPassword(int(os.Stdin.Fd()), os.Stderr)
	if err != nil {
		return err
	}

	return changePassword(context.Background(), cfg, username, password)
}

// promptNewPassword asks for a password twice without echo.
func promptNewPassword(fd int, out io.Writer) (string, error) {
	_, _ = fmt.Fprint(out, "New password: ")
	first, err := readPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	_, _ = fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	return string(first), nil
}

// changePassword stores a new password hash for username.
func changePassword(ctx context.Context, cfg *config.Config, username, password string) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	hasher, err := auth.NewHasher(cfg.PasswordHash, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	// Sessions are not touched by SetPassword.
	svc := service.NewAuthService(store.New(db, cfg.DBDriver), nil, hasher, nil)
	if err := svc.SetPassword(ctx, username, password); err != nil {
		var se *service.Error
		if errors.As(err, &se) && se.Kind != service.KindInternal {
			return errors.New(se.Message)
		}
		return err
	}
	return nil
}
