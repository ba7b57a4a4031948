package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel errors for the domain. Services return these (possibly
// wrapped); the HTTP boundary maps them to status codes via Status.
var (
	// ErrProfileNotFound: the requester or target has no profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidTarget: self-swipe, unmatched message recipient, or a
	// malformed target id.
	ErrInvalidTarget = errors.New("invalid target user")

	// ErrQuotaExceeded: the weekly cap for a rate-limited action is
	// reached for a non-premium account.
	ErrQuotaExceeded = errors.New("weekly quota exceeded")

	// ErrValidation: malformed request input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized: missing or invalid credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmailTaken: registration with an already-registered email.
	ErrEmailTaken = errors.New("email already registered")
)

// Validationf wraps ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// InvalidTargetf wraps ErrInvalidTarget with a message.
func InvalidTargetf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidTarget}, args...)...)
}

// Status maps a domain or infra error onto an HTTP status code.
// Keeps handlers clean by centralizing the mapping.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrProfileNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden

	case errors.Is(err, ErrInvalidTarget), errors.Is(err, ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing error message. Internal errors are
// not leaked to clients.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
