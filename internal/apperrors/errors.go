package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports
type Kind string

// Error kinds
const (
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindExpired        Kind = "TOKEN_EXPIRED"
	KindForbidden      Kind = "FORBIDDEN"
	KindNotFound       Kind = "NOT_FOUND"
	KindStoreFailure   Kind = "STORE_FAILURE"
)

// Error is an application error with a client safe message
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRequest reports a malformed or incomplete request
func InvalidRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that the targeted row does not exist
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing or invalid credential
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Expired reports a credential that was valid but has expired
func Expired(message string) *Error {
	return &Error{Kind: KindExpired, Message: message}
}

// Forbidden reports an authenticated caller lacking the needed role
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// StoreFailure wraps an error from the store that survived all retries
func StoreFailure(err error) *Error {
	return &Error{Kind: KindStoreFailure, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, StoreFailure for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreFailure
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Status maps an error to its HTTP status code
func Status(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUnauthorized, KindExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that may be shown to a client
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
