// Package apperror defines the error taxonomy shared by every layer of the
// application. Services and repositories translate raw failures (SQL errors,
// feed errors, clock checks) into these before they reach a handler, so the
// HTTP layer only ever maps a small, closed set of sentinels to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrAccessDenied   = errors.New("access denied")
	ErrTransient      = errors.New("transient store error")
	ErrSessionExpired = errors.New("session expired")
	ErrNoSession      = errors.New("no session")
)

type AppError struct {
	Err     error  // sentinel this error wraps
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// QuotaExceeded reports a policy denial: the account has reached its
// document ceiling. Recoverable by upgrading the subscription.
func QuotaExceeded(count, limit int) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("document limit reached (%d of %d), upgrade to create more", count, limit),
	}
}

// AccessDenied reports an authorization boundary violation. Not recoverable
// without re-authentication.
func AccessDenied(message string) *AppError {
	return &AppError{
		Err:     ErrAccessDenied,
		Message: message,
	}
}

// Transient wraps a network or store failure that left local state stale but
// intact. Recoverable by retrying the operation.
func Transient(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %v", ErrTransient, op, err),
		Message: fmt.Sprintf("temporary failure during %s, please retry", op),
	}
}

// SessionExpired reports a time-based session denial. Recoverable by
// logging in again.
func SessionExpired() *AppError {
	return &AppError{
		Err:     ErrSessionExpired,
		Message: "session expired, please log in again",
	}
}

// NoSession reports that no stored admin session exists.
func NoSession() *AppError {
	return &AppError{
		Err:     ErrNoSession,
		Message: "not logged in",
	}
}
