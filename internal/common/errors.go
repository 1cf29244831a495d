// Package common defines shared constants and sentinel errors used across
// gophid server and client layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Error kinds raised by services. The HTTP layer maps each of them to a
	// status code.
	ErrorBadRequest   = errors.New("bad request")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorConflict     = errors.New("conflict")
	ErrorInternal     = errors.New("internal error")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// KindError carries a short user-facing message together with one of the
// error kinds above.
type KindError struct {
	Kind    error
	Message string
}

// NewError returns an error that matches kind with errors.Is and renders as msg.
func NewError(kind error, msg string) error {
	return &KindError{Kind: kind, Message: msg}
}

func (e *KindError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *KindError) Unwrap() error {
	return e.Kind
}

// Message returns the user-facing message of err if it carries one,
// otherwise fallback.
func Message(err error, fallback string) string {
	var ke *KindError
	if errors.As(err, &ke) && ke.Message != "" {
		return ke.Message
	}
	return fallback
}
