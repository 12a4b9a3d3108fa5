// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the account operations behind the HTTP API:
// signup, login, logout, the current user and admin user management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/go-playground/validator.v9"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/session"
	"github.com/ThemedEdits/SignUp/internal/store"
)

// UserStore is the credential store used by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int64, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

// SessionStore issues and destroys sessions for the request in ctx.
type SessionStore interface {
	Create(ctx context.Context, userID int64, isAdmin bool) error
	Load(ctx context.Context) (session.Data, bool)
	Destroy(ctx context.Context) error
	DestroyUser(ctx context.Context, userID int64) (int, error)
}

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	AuthEvent(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

// Outcomes passed to Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// PublicUser is the client-visible projection of a user. It never carries
// the password hash.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPublic(u store.User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// SignupInput is the registration request.
type SignupInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the login request.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	UserID  int64 `json:"userId"`
	IsAdmin bool  `json:"isAdmin"`
}

// dummyPassword is hashed once and verified for unknown usernames so that
// both failure paths cost one hash verification.
const dummyPassword = "signup-timing-equalizer"

// AuthService provides the account operations.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	hasher   auth.Hasher
	metrics  Recorder
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService. metrics may be nil.
func NewAuthService(users UserStore, sessions SessionStore, hasher auth.Hasher, metrics Recorder) *AuthService {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Signup registers a user and starts a session for them.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validateSignup(in); err != nil {
		s.metrics.AuthEvent("signup", OutcomeFailure)
		return AuthResult{}, err
	}

	passwordHash, err := s.hashPassword(in.Password)
	if err != nil {
		s.metrics.AuthEvent("signup", outcomeOf(err))
		return AuthResult{}, err
	}

	user, err := s.users.CreateUser(ctx, store.CreateUserParams{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.metrics.AuthEvent("signup", OutcomeFailure)
			return AuthResult{}, ConflictError(MsgDuplicateUser, err)
		}
		s.metrics.AuthEvent("signup", OutcomeError)
		return AuthResult{}, InternalError(err)
	}

	if err := s.sessions.Create(ctx, user.ID, false); err != nil {
		s.metrics.AuthEvent("signup", OutcomeError)
		return AuthResult{}, InternalError(err)
	}

	slog.InfoContext(ctx, "user signed up", "user_id", user.ID, "username", user.Username)
	s.metrics.AuthEvent("signup", OutcomeSuccess)

	return AuthResult{UserID: user.ID, IsAdmin: false}, nil
}

func (s *AuthService) validateSignup(in SignupInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InternalError(err)
	}
	// Missing fields win over a short password.
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return ValidationError(MsgAllFieldsRequired)
		}
	}
	return ValidationError(MsgPasswordTooShort)
}

func (s *AuthService) hashPassword(password string) (string, error) {
	h, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", ValidationError(MsgPasswordTooLong)
		}
		return "", InternalError(fmt.Errorf("hashing password: %w", err))
	}
	return h, nil
}

// Login checks credentials and starts a new session. Unknown usernames and
// wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	if err := s.validate.Struct(in); err != nil {
		s.metrics.AuthEvent("login", OutcomeFailure)
		return AuthResult{}, ValidationError(MsgCredentialsRequired)
	}

	user, err := s.users.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = s.hasher.Verify(in.Password, s.dummy())
			s.metrics.AuthEvent("login", OutcomeFailure)
			return AuthResult{}, AuthError(MsgInvalidCredentials)
		}
		s.metrics.AuthEvent("login", OutcomeError)
		return AuthResult{}, InternalError(err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.metrics.AuthEvent("login", OutcomeError)
		return AuthResult{}, InternalError(fmt.Errorf("verifying password of user %d: %w", user.ID, err))
	}
	if !ok {
		slog.InfoContext(ctx, "login failed", "user_id", user.ID)
		s.metrics.AuthEvent("login", OutcomeFailure)
		return AuthResult{}, AuthError(MsgInvalidCredentials)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, in.Password)
	}

	if err := s.sessions.Create(ctx, user.ID, user.IsAdmin); err != nil {
		s.metrics.AuthEvent("login", OutcomeError)
		return AuthResult{}, InternalError(err)
	}

	slog.InfoContext(ctx, "user logged in", "user_id", user.ID, "is_admin", user.IsAdmin)
	s.metrics.AuthEvent("login", OutcomeSuccess)

	return AuthResult{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// rehash upgrades a stored hash to the current parameters. Failures are
// logged and do not affect the login.
func (s *AuthService) rehash(ctx context.Context, userID int64, password string) {
	h, err := s.hasher.Hash(password)
	if err != nil {
		slog.WarnContext(ctx, "password rehash failed", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdateUserPassword(ctx, userID, h); err != nil {
		slog.WarnContext(ctx, "storing rehashed password failed", "user_id", userID, "error", err)
		return
	}
	slog.InfoContext(ctx, "password rehashed", "user_id", userID)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("hashing dummy password", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// Logout destroys the current session. It succeeds when there is none.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Destroy(ctx); err != nil {
		return InternalError(fmt.Errorf("destroying session: %w", err))
	}
	s.metrics.AuthEvent("logout", OutcomeSuccess)
	return nil
}

// CurrentUser returns the user bound to the current session. A session whose
// user no longer exists is destroyed.
func (s *AuthService) CurrentUser(ctx context.Context) (PublicUser, error) {
	data, ok := s.sessions.Load(ctx)
	if !ok {
		return PublicUser{}, AuthError(MsgNotAuthenticated)
	}

	user, err := s.users.GetUserByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if err := s.sessions.Destroy(ctx); err != nil {
				slog.WarnContext(ctx, "destroying orphaned session", "user_id", data.UserID, "error", err)
			}
			return PublicUser{}, AuthError(MsgNotAuthenticated)
		}
		return PublicUser{}, InternalError(err)
	}

	return toPublic(user), nil
}

// ListUsers returns every user.
func (s *AuthService) ListUsers(ctx context.Context) ([]PublicUser, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, InternalError(err)
	}

	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, toPublic(u))
	}
	return out, nil
}

// DeleteUser removes user id on behalf of actorID and destroys the deleted
// user's sessions. Admins cannot delete themselves or the last admin.
func (s *AuthService) DeleteUser(ctx context.Context, actorID, id int64) error {
	if id == actorID {
		return ValidationError(MsgCannotDeleteSelf)
	}

	target, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(MsgUserNotFound)
		}
		return InternalError(err)
	}

	if target.IsAdmin {
		admins, err := s.users.CountAdmins(ctx)
		if err != nil {
			return InternalError(err)
		}
		if admins <= 1 {
			return ValidationError(MsgCannotDeleteLastAdmin)
		}
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(MsgUserNotFound)
		}
		return InternalError(err)
	}

	destroyed, err := s.sessions.DestroyUser(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "destroying sessions of deleted user", "user_id", id, "error", err)
	}

	slog.InfoContext(ctx, "user deleted",
		"user_id", id,
		"username", target.Username,
		"deleted_by", actorID,
		"sessions_destroyed", destroyed,
	)

	return nil
}

// SetPassword replaces the password of username.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) error {
	if len([]rune(password)) < 6 {
		return ValidationError(MsgPasswordTooShort)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(MsgUserNotFound)
		}
		return InternalError(err)
	}

	passwordHash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	if err := s.users.UpdateUserPassword(ctx, user.ID, passwordHash); err != nil {
		return InternalError(err)
	}

	slog.InfoContext(ctx, "password changed", "user_id", user.ID)
	return nil
}

func outcomeOf(err error) string {
	if KindOf(err) == KindInternal {
		return OutcomeError
	}
	return OutcomeFailure
}
