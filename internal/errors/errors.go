// Package errors provides coded application errors shared by all layers.
// Handlers map codes to HTTP statuses; services construct them at the point
// where a precondition fails.
package errors

import (
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	ErrCodeNotFound          Code = "NOT_FOUND"
	ErrCodeInvalidTransition Code = "INVALID_TRANSITION"
	ErrCodeValidation        Code = "VALIDATION_ERROR"
	ErrCodeUnauthorized      Code = "UNAUTHORIZED"
	ErrCodeConflict          Code = "CONFLICT"
	ErrCodeInternal          Code = "INTERNAL"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// InvalidInput reports a validation failure on a named field.
func InvalidInput(field, message string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// InvalidTransition reports a state change that is not reachable from the
// current status.
func InvalidTransition(action, from string) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s from status '%s'", action, from),
	}
}

// CodeOf extracts the code from an error, defaulting to ErrCodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error to the HTTP status the handler layer responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
