// Package apperrors defines the typed failures returned by stores and the
// transaction workflow, and maps them onto HTTP responses.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindPersistence  Kind = "persistence"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnexpected   Kind = "unexpected"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	// Committed marks a storage failure that happened after the change was
	// applied in memory. The change stands and later reads observe it.
	Committed bool `json:"-"`
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

type Option func(*Error)

func WithMessage(message string) Option {
	return func(e *Error) {
		e.Message = message
	}
}

func WithError(err error) Option {
	return func(e *Error) {
		e.Err = err
	}
}

// WithCommitted marks the change as applied despite the error.
func WithCommitted() Option {
	return func(e *Error) {
		e.Committed = true
	}
}

func newError(kind Kind, code int, message string, opts []Option) *Error {
	e := &Error{Kind: kind, Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validation reports a malformed request. No state was mutated.
func Validation(opts ...Option) *Error {
	return newError(KindValidation, http.StatusBadRequest, "invalid request", opts)
}

// NotFound reports a missing transaction or account.
func NotFound(opts ...Option) *Error {
	return newError(KindNotFound, http.StatusNotFound, "not found", opts)
}

// InvalidState reports a transition attempted from a non-pending status.
func InvalidState(opts ...Option) *Error {
	return newError(KindInvalidState, http.StatusConflict, "invalid state transition", opts)
}

// Persistence reports a storage read/write failure or malformed stored data.
func Persistence(opts ...Option) *Error {
	return newError(KindPersistence, http.StatusInternalServerError, "storage failure", opts)
}

func Unauthorized(opts ...Option) *Error {
	return newError(KindUnauthorized, http.StatusUnauthorized, "unauthorized", opts)
}

func Forbidden(opts ...Option) *Error {
	return newError(KindForbidden, http.StatusForbidden, "forbidden", opts)
}

func Unexpected(opts ...Option) *Error {
	return newError(KindUnexpected, http.StatusInternalServerError, "internal server error", opts)
}

// KindOf returns the Kind of err, or KindUnexpected for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsCommitted reports whether err is a failure whose change was applied anyway.
func IsCommitted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Committed
}
