package store

import (
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code. The store layer
// returns the sentinels below; callers compare with errors.Is and the HTTP
// adapter maps them through HTTPCode.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// Sentinel errors.
var (
	// ErrNotFound is returned when a user, photo, album or blob row does
	// not exist.
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	// ErrAlreadyExists is returned on unique constraint violations:
	// duplicate usernames, a fingerprint the user already owns, or a
	// photo already in an album.
	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}
)
