// Package apperr defines the error kinds surfaced to API clients. Every
// rejection carries one stable Kind a client can branch on.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a stable, client-visible rejection code.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindMalformed    Kind = "malformed"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error is an error tagged with a Kind. Message is safe to show to clients;
// Err holds the underlying cause for logs.
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

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Unauthorized never carries a cause. Callers must not learn why a
// credential was rejected.
func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: "unauthorized"}
}

func NotFound(msg string) *Error  { return New(KindNotFound, msg) }
func Conflict(msg string) *Error  { return New(KindConflict, msg) }
func Malformed(msg string) *Error { return New(KindMalformed, msg) }
func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Status maps a Kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindMalformed:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
