// Package errors provides standardized domain errors with codes for crate.
//
// Usage:
//
//	// In components - return typed errors
//	if root == "" {
//	    return errors.InvalidRoot(path)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrInvalidRoot) {
//	    log.Warn("event outside watched trees", "path", path)
//	}
package errors

import (
	"errors"
	"fmt"
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
	CodeInvalidRoot       Code = "INVALID_ROOT"
	CodeInvalidParent     Code = "INVALID_PARENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION"
	CodeSortFailed        Code = "SORT_FAILED"
	CodeUnsupportedFormat Code = "UNSUPPORTED_FORMAT"
	CodeInternal          Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
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

// Sentinel errors for errors.Is checks.
var (
	ErrInvalidRoot       = &Error{Code: CodeInvalidRoot, Message: "path is not under any watched root"}
	ErrInvalidParent     = &Error{Code: CodeInvalidParent, Message: "path has no resolvable parent"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrSortFailed        = &Error{Code: CodeSortFailed, Message: "sort failed"}
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat, Message: "unsupported audio format"}
)

// InvalidRoot creates an error for a path that resolves to no watched root.
func InvalidRoot(path string) *Error {
	return &Error{
		Code:    CodeInvalidRoot,
		Message: fmt.Sprintf("path %q is not under any watched root", path),
	}
}

// InvalidParent creates an error for a path with no resolvable parent.
func InvalidParent(path string) *Error {
	return &Error{
		Code:    CodeInvalidParent,
		Message: fmt.Sprintf("path %q has no resolvable parent", path),
	}
}

// NotFound creates a not-found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a formatted validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// SortFailed wraps a sorting-engine failure for one path.
func SortFailed(path string, cause error) *Error {
	return &Error{
		Code:    CodeSortFailed,
		Message: fmt.Sprintf("failed to sort %q", path),
		cause:   cause,
	}
}

// UnsupportedFormat creates an error for a file the tag reader cannot handle.
func UnsupportedFormat(path string) *Error {
	return &Error{
		Code:    CodeUnsupportedFormat,
		Message: fmt.Sprintf("unsupported audio format: %q", path),
	}
}

// Internal creates an internal error, optionally wrapping a cause.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}
