// Package apperrors defines the error taxonomy shared by services and
// handlers.  Each AppError carries a Kind that maps to an HTTP status and a
// short human-readable message that is safe to return to clients.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindBadRequest      Kind = "BAD_REQUEST"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindDispatchFailure Kind = "DISPATCH_FAILURE"
	KindInternal        Kind = "INTERNAL"
)

// AppError is the error type returned across service boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status.  DispatchFailure never
// reaches a response on its own (it is folded into per-item results), so
// it shares the 502 used for upstream failures.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDispatchFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, msg string) *AppError { return &AppError{Kind: kind, Message: msg} }

func Wrap(err error, kind Kind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg, Err: err}
}

func BadRequest(msg string) *AppError   { return New(KindBadRequest, msg) }
func Unauthorized(msg string) *AppError { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *AppError    { return New(KindForbidden, msg) }
func NotFound(msg string) *AppError     { return New(KindNotFound, msg) }
func Conflict(msg string) *AppError     { return New(KindConflict, msg) }

// Internal wraps an unexpected failure.  The message is generic; the cause
// is only ever logged.
func Internal(err error) *AppError {
	return Wrap(err, KindInternal, "internal server error")
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}
