// Package apperr defines the error taxonomy shared by services and handlers.
// Services return these; handlers map them to HTTP status codes without
// leaking internal detail to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindValidation Kind = iota // malformed or missing input
	KindAuth                   // missing/invalid/expired credentials
	KindForbidden              // authenticated but not allowed
	KindNotFound               // absent, or present but not owned
	KindConflict               // uniqueness violation (duplicate email)
	KindDependency             // relational or object store failure
)

// Error carries a kind, a client-safe message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a 400-class error.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// Auth returns a 401-class error.
func Auth(msg string) *Error { return &Error{Kind: KindAuth, Message: msg} }

// Forbidden returns a 403-class error.
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

// NotFound returns a 404-class error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict returns a 409-class error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// Dependency wraps a store failure as a 500-class error. The cause is kept
// for logging only, never sent to the client.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// Status maps an error to its HTTP status code. Unrecognized errors are 500.
func Status(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the user-safe message for an error. Unrecognized
// errors get a generic message so internals never leak.
func ClientMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}
