// Package dErrors provides coded domain errors shared by services and
// transport. Services attach a Code so handlers can map failures to HTTP
// statuses without inspecting storage internals.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers.
type Code string

const (
	// CodeValidation marks malformed input, rejected before the operation
	// reaches a service. Field carries the offending field when known.
	CodeValidation Code = "validation"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks a caller lacking the required authority tier.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidState marks an operation that is not valid for the entity's
	// current lifecycle state (double-approve, double-retire, touching the
	// top authority).
	CodeInvalidState Code = "invalid_state"
	// CodeConflict marks a uniqueness violation.
	CodeConflict Code = "conflict"
	// CodeInternal marks unexpected failures. Details stay server-side.
	CodeInternal Code = "internal"
)

// Error is the concrete coded error. Wrapped causes are preserved for
// errors.Is/As but never serialized to clients.
type Error struct {
	Code    Code
	Message string
	Field   string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a client-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewField creates a validation-style error pointing at a specific field.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Message: message, Field: field}
}

// Wrap attaches a code and client-safe message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors so unexpected failures never leak detail.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf extracts the offending field from a validation error, if set.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidState, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
