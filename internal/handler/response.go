// Package handler contains the HTTP layer: request parsing, response
// shaping, and the mapping from domain errors to status codes. Handlers
// hold no business logic.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/docuflow/internal/apperror"
)

// ErrorResponse is the error format every endpoint returns: a
// machine-readable kind plus a human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent at this point; logging is all we can do.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status. Services return the
// apperror sentinels and never see status codes; this is the one place
// the translation happens.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNoSession):
			status = http.StatusUnauthorized
			errorType = "no_session"
		case errors.Is(err, apperror.ErrSessionExpired):
			status = http.StatusUnauthorized
			errorType = "session_expired"
		case errors.Is(err, apperror.ErrQuotaExceeded):
			status = http.StatusPaymentRequired
			errorType = "quota_exceeded"
		case errors.Is(err, apperror.ErrAccessDenied):
			status = http.StatusForbidden
			errorType = "access_denied"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrTransient):
			status = http.StatusServiceUnavailable
			errorType = "transient_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown errors get a generic 500. The raw message may carry SQL or
	// file paths, so it never reaches the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
