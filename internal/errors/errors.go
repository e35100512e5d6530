// Package errors provides standardized domain errors with codes for the Saucier API.
//
// Usage:
//
//	// In services - return typed errors
//	if result.Version != snapshot.Version {
//	    return errors.StaleVersion("validation result is no longer current")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrVersionConflict) {
//	    // surface conflict, keep local edits
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeVersionConflict:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeShape              Code = "SHAPE"
	CodeVersionConflict    Code = "VERSION_CONFLICT"
	CodeStaleVersion       Code = "STALE_VERSION"
	CodeValidationRequired Code = "VALIDATION_REQUIRED"
	CodeBusy               Code = "BUSY"
	CodeUpstream           Code = "UPSTREAM"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeShape:
		return http.StatusBadRequest
	case CodeVersionConflict, CodeStaleVersion, CodeConflict, CodeBusy:
		return http.StatusConflict
	case CodeValidationRequired:
		return http.StatusPreconditionFailed
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrShape              = &Error{Code: CodeShape, Message: "unexpected value shape"}
	ErrVersionConflict    = &Error{Code: CodeVersionConflict, Message: "draft was modified by another session"}
	ErrStaleVersion       = &Error{Code: CodeStaleVersion, Message: "version is no longer current"}
	ErrValidationRequired = &Error{Code: CodeValidationRequired, Message: "a current passing validation is required"}
	ErrBusy               = &Error{Code: CodeBusy, Message: "operation already in flight"}
	ErrUpstream           = &Error{Code: CodeUpstream, Message: "upstream server error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Shape creates a shape error for a value that is not the expected sequence or record.
func Shape(msg string) *Error {
	return &Error{Code: CodeShape, Message: msg}
}

// Shapef creates a shape error with formatted message.
func Shapef(format string, args ...any) *Error {
	return &Error{Code: CodeShape, Message: fmt.Sprintf(format, args...)}
}

// VersionConflict creates a version conflict error.
func VersionConflict(msg string) *Error {
	return &Error{Code: CodeVersionConflict, Message: msg}
}

// StaleVersion creates a stale version error.
func StaleVersion(msg string) *Error {
	return &Error{Code: CodeStaleVersion, Message: msg}
}

// ValidationRequired creates a validation required error.
func ValidationRequired(msg string) *Error {
	return &Error{Code: CodeValidationRequired, Message: msg}
}

// Busy creates a busy error for re-entrant protocol operations.
func Busy(msg string) *Error {
	return &Error{Code: CodeBusy, Message: msg}
}

// Upstream creates an upstream error.
func Upstream(msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg}
}

// Upstreamf creates an upstream error with formatted message.
func Upstreamf(format string, args ...any) *Error {
	return &Error{Code: CodeUpstream, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
