package mdview

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// These are meant to be generic codes that map to coarse categories of
// failure. A code is inspected with ErrorCode, never by unwrapping to the
// concrete type at call sites.
const (
	ECONFLICT    = "conflict"     // operation conflicts with current state
	EINTERNAL    = "internal"     // internal error
	EINVALID     = "invalid"      // validation failed
	ENOTFOUND    = "not_found"    // document or resource does not exist
	ERATELIMITED = "rate_limited" // remote dependency refused the request
)

// Error represents an application-specific error. Application errors carry
// a machine-readable code and a human-readable message.
type Error struct {
	// Code is one of the E* constants above.
	Code string

	// Message is a human-readable description of the error.
	Message string
}

// Error implements the error interface. Not used by the application
// otherwise; outward-facing surfaces use ErrorCode and ErrorMessage.
func (e *Error) Error() string {
	return fmt.Sprintf("mdview error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
