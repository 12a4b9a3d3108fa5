// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "errors"

// Kind classifies a service failure. The HTTP layer maps each kind to one
// status code.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified service failure. Message is safe to show to clients;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed or incomplete input.
func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ConflictError reports a uniqueness violation.
func ConflictError(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// AuthError reports missing or invalid credentials.
func AuthError(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

// ForbiddenError reports an authenticated caller without the required role.
func ForbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFoundError reports a missing resource.
func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// InternalError wraps an unexpected failure. Its message never reaches clients.
func InternalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Messages shared by the service and the HTTP layer.
const (
	MsgAllFieldsRequired     = "All fields are required"
	MsgPasswordTooShort      = "Password must be at least 6 characters"
	MsgPasswordTooLong       = "Password must be at most 72 bytes"
	MsgDuplicateUser         = "Username or email already exists"
	MsgCredentialsRequired   = "Username and password are required"
	MsgInvalidCredentials    = "Invalid credentials"
	MsgNotAuthenticated      = "Not authenticated"
	MsgForbidden             = "Forbidden"
	MsgCannotDeleteSelf      = "Cannot delete your own account"
	MsgCannotDeleteLastAdmin = "Cannot delete the last admin"
	MsgUserNotFound          = "User not found"
	MsgInvalidUserID         = "Invalid user ID"
)
