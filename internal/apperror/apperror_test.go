package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("document", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound() should wrap ErrNotFound")
	}
	if err.Message != "document not found with id abc123" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestQuotaExceeded(t *testing.T) {
	err := QuotaExceeded(5, 5)

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("QuotaExceeded() should wrap ErrQuotaExceeded")
	}
	if err.Field != "" {
		t.Errorf("QuotaExceeded() should not set Field, got %q", err.Field)
	}
}

func TestValidationFailed(t *testing.T) {
	err := ValidationFailed("title", "title is required")

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationFailed() should wrap ErrValidation")
	}
	if err.Field != "title" {
		t.Errorf("Field = %q, want %q", err.Field, "title")
	}
}

func TestTransientPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("loading subscription", cause)

	if !errors.Is(err, ErrTransient) {
		t.Error("Transient() should wrap ErrTransient")
	}
}

func TestSessionErrorsAreDistinct(t *testing.T) {
	expired := SessionExpired()
	missing := NoSession()

	if errors.Is(expired, ErrNoSession) {
		t.Error("SessionExpired() must not match ErrNoSession")
	}
	if errors.Is(missing, ErrSessionExpired) {
		t.Error("NoSession() must not match ErrSessionExpired")
	}
}

// Errors wrapped by callers with fmt.Errorf("%w") must still match their
// sentinel; handlers rely on errors.Is walking the whole chain.
func TestWrappedErrorStillMatches(t *testing.T) {
	err := fmt.Errorf("creating document: %w", QuotaExceeded(5, 5))

	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("wrapped error should still match ErrQuotaExceeded")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should extract *AppError from the chain")
	}
	if appErr.Message == "" {
		t.Error("extracted AppError should carry its message")
	}
}
