package apperror // apperror defines the error taxonomy shared by services, middleware and handlers

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.  Every service operation either
// succeeds or fails with exactly one Kind plus a human-readable message;
// handlers map the Kind to an HTTP status code.  Callers branch on the Kind,
// never on the message text.
type Kind string

const (
	BadRequest      Kind = "BAD_REQUEST"
	Unauthorized    Kind = "UNAUTHORIZED"
	Forbidden       Kind = "FORBIDDEN"
	NotFound        Kind = "NOT_FOUND"
	AlreadyExists   Kind = "ALREADY_EXISTS"
	ValidationError Kind = "VALIDATION_ERROR"
	TooManyRequests Kind = "TOO_MANY_REQUESTS"
	ServerError     Kind = "SERVER_ERROR"
)

// Error carries a Kind, a user-facing message and an optional wrapped cause.
// The cause is for logs only and is never rendered to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap is like New but preserves the underlying cause for logging.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err.  Errors that are not *Error collapse to
// ServerError so that unclassified failures never leak internals.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ServerError
}

// StatusCode maps a Kind to its fixed HTTP status code.
func StatusCode(kind Kind) int {
	switch kind {
	case BadRequest:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case ValidationError:
		return http.StatusUnprocessableEntity
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
