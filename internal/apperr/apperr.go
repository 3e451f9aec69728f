// Package apperr defines the error taxonomy shared by the claim flow, the order
// pipeline, and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
	"time"
)

// Kind is the machine-readable class of an error.
type Kind string

// Error kinds surfaced to clients.
const (
	// KindInvalidInput marks malformed tokens, secrets, links, or request bodies.
	KindInvalidInput Kind = "invalid_input"
	// KindNotFound marks a token or order that does not exist.
	KindNotFound Kind = "not_found"
	// KindConflict marks an operation whose claim precondition does not hold.
	KindConflict Kind = "conflict"
	// KindUnauthorized marks a failed setup code verification.
	KindUnauthorized Kind = "unauthorized"
	// KindRateLimited marks a card under lockout.
	KindRateLimited Kind = "rate_limited"
	// KindUpstream marks a store, storage, or email failure.
	KindUpstream Kind = "upstream_failure"
	// KindUnexpected is the catch-all.
	KindUnexpected Kind = "unexpected"
)

// Error carries a kind, a short user-facing message, and optional lockout details.
type Error struct {
	Kind    Kind
	Message string

	AttemptsRemaining *int       // Set on Unauthorized.
	LockedUntil       *time.Time // Set on RateLimited, and on Unauthorized when the failure triggered a lock.

	Err error // Internal cause; never sent to clients.
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Unauthorized builds a KindUnauthorized error with the remaining attempt budget.
func Unauthorized(message string, attemptsRemaining int, lockedUntil *time.Time) *Error {
	remaining := attemptsRemaining
	return &Error{
		Kind:              KindUnauthorized,
		Message:           message,
		AttemptsRemaining: &remaining,
		LockedUntil:       lockedUntil,
	}
}

// RateLimited builds a KindRateLimited error for a lock ending at until.
func RateLimited(message string, until time.Time) *Error {
	u := until
	return &Error{Kind: KindRateLimited, Message: message, LockedUntil: &u}
}

// Upstream wraps a dependency failure.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Unexpected wraps an error that fits no other kind.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "Unexpected server error", Err: err}
}

// As extracts an *Error from err, wrapping anything else as Unexpected.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// HTTPStatus maps a kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
