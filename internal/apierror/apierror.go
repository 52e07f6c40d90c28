// Package apierror defines the typed error carried from handlers to the HTTP
// boundary, where it is rendered into the error envelope.
package apierror

import (
	"errors"
	"net/http"
)

// Error is an HTTP-aware error with a client-facing message.
type Error struct {
	StatusCode int
	Message    string
	Errors     []string
	Err        error
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

// Wrap attaches an underlying cause that is logged but never sent to the client.
func (e *Error) Wrap(err error) *Error {
	out := *e
	out.Err = err
	return &out
}

func newError(status int, message string, details ...string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{StatusCode: status, Message: message, Errors: details}
}

// Validation reports malformed or missing input (400).
func Validation(message string, details ...string) *Error {
	return newError(http.StatusBadRequest, message, details...)
}

// Unauthorized reports missing, invalid or expired credentials (401).
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, message)
}

// Forbidden reports an authenticated caller acting on a resource they do not own (403).
func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, message)
}

// NotFound reports a missing target entity (404).
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, message)
}

// Conflict reports a uniqueness violation (409).
func Conflict(message string) *Error {
	return newError(http.StatusConflict, message)
}

// TooManyRequests reports a rate limited caller (429).
func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, message)
}

// Internal reports an unexpected failure of a collaborator (500).
func Internal(message string) *Error {
	return newError(http.StatusInternalServerError, message)
}

// From converts any error into an *Error. Errors that are not already typed
// become a generic 500 with the original error kept as the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal("Internal server error").Wrap(err)
}
