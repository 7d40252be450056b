// Package errors provides standardized domain errors with codes for the PhotoKeep server.
//
// Usage:
//
//	// In services - return typed errors
//	if photo.UserID != requesterID {
//	    return errors.Forbidden("photo belongs to another user")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrQuotaExceeded) {
//	    response.Error(w, http.StatusInsufficientStorage, err.Error(), logger)
//	    return
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

// Error codes used throughout the application. These cover the ingestion
// pipeline's failure taxonomy plus the generic request-level codes.
const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeQuotaExceeded     Code = "QUOTA_EXCEEDED"
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	CodeDuplicateRace     Code = "DUPLICATE_RACE"
	CodeStorageIO         Code = "STORAGE_IO"
	CodeMetadataStore     Code = "METADATA_STORE"
	CodeValidation        Code = "VALIDATION"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeQuotaExceeded:
		return http.StatusInsufficientStorage
	case CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeDuplicateRace, CodeStorageIO, CodeMetadataStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a pipeline step failing with this code may be
// retried with the same quota reservation. Quota, format, and ownership
// failures are never retried.
func (c Code) Retryable() bool {
	return c == CodeDuplicateRace || c == CodeStorageIO
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
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrQuotaExceeded     = &Error{Code: CodeQuotaExceeded, Message: "storage quota exceeded"}
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat, Message: "unsupported image format"}
	ErrDuplicateRace     = &Error{Code: CodeDuplicateRace, Message: "concurrent write for identical content"}
	ErrStorageIO         = &Error{Code: CodeStorageIO, Message: "content store I/O failure"}
	ErrMetadataStore     = &Error{Code: CodeMetadataStore, Message: "metadata store failure"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrAlreadyExists     = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
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

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Forbiddenf creates a forbidden error with formatted message.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// QuotaExceeded creates a quota exceeded error.
func QuotaExceeded(msg string) *Error {
	return &Error{Code: CodeQuotaExceeded, Message: msg}
}

// QuotaExceededf creates a quota exceeded error with formatted message.
func QuotaExceededf(format string, args ...any) *Error {
	return &Error{Code: CodeQuotaExceeded, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedFormat creates an unsupported format error.
func UnsupportedFormat(msg string) *Error {
	return &Error{Code: CodeUnsupportedFormat, Message: msg}
}

// DuplicateRace creates a duplicate race error.
func DuplicateRace(msg string) *Error {
	return &Error{Code: CodeDuplicateRace, Message: msg}
}

// StorageIO creates a content store I/O error.
func StorageIO(msg string) *Error {
	return &Error{Code: CodeStorageIO, Message: msg}
}

// MetadataStore creates a metadata store error.
func MetadataStore(msg string) *Error {
	return &Error{Code: CodeMetadataStore, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
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
