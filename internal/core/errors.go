package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeValidation    = "validation_failed"
	ErrCodeNotFound      = "not_found"
	ErrCodeNoAdmin       = "no_admin"
	ErrCodePersistence   = "persistence_error"
	ErrCodeNotRegistered = "not_registered"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeUnknownEvent  = "unknown_event"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrNoAdmin       = errors.New("no administrator available")
	ErrPersistence   = errors.New("persistence failure")
	ErrNotRegistered = errors.New("connection not registered")
)

// CoreError wraps a code and human-readable message. Err carries the cause
// for logging and errors.Is; it never reaches the wire.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

func forbidden(msg string) *CoreError {
	return coreError(ErrCodeForbidden, msg, ErrForbidden)
}

func invalid(msg string) *CoreError {
	return coreError(ErrCodeValidation, msg, ErrValidation)
}

func persistence(msg string, err error) *CoreError {
	return coreError(ErrCodePersistence, msg, fmt.Errorf("%w: %w", ErrPersistence, err))
}

// asCoreError maps any error onto the client-visible taxonomy.
func asCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return persistence("internal error", err)
}
