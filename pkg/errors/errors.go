// Package errors defines roost's structured error type.
//
// Every failure that crosses a package boundary is a *RoostError carrying a
// stable code, a message, the wrapped cause and a details map. The details
// always name the failing operation ("op") so the top-level handler can
// report where things went wrong.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"

	// Configuration errors
	ErrConfigLoad ErrorCode = "CONFIG_LOAD"

	// Path resolution errors
	ErrResolution ErrorCode = "RESOLUTION"
	ErrCycle      ErrorCode = "CYCLE"
	ErrNotFound   ErrorCode = "NOT_FOUND"

	// Tree synchronization errors
	ErrTypeConflict    ErrorCode = "TYPE_CONFLICT"
	ErrUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// Package errors
	ErrValidation ErrorCode = "VALIDATION"

	// External operations and loaded modules
	ErrExecution ErrorCode = "EXECUTION"
)

// Detail keys used across packages
const (
	DetailOp      = "op"
	DetailPath    = "path"
	DetailModule  = "module"
	DetailPackage = "package"
	DetailCommand = "command"
	DetailStatus  = "status"
)

// RoostError represents a structured error with code and details
type RoostError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *RoostError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *RoostError) Unwrap() error {
	return e.Wrapped
}

// Is matches any *RoostError with the same code. The resolution refinements
// (cycle, not found) also match ErrResolution.
func (e *RoostError) Is(target error) bool {
	var targetErr *RoostError
	if !errors.As(target, &targetErr) {
		return false
	}
	if e.Code == targetErr.Code {
		return true
	}
	return targetErr.Code == ErrResolution && (e.Code == ErrCycle || e.Code == ErrNotFound)
}

// New creates a new RoostError with the given code and message
func New(code ErrorCode, message string) *RoostError {
	return &RoostError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new RoostError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RoostError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a RoostError
func Wrap(err error, code ErrorCode, message string) *RoostError {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RoostError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *RoostError) WithDetail(key string, value interface{}) *RoostError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithOp records the failing operation location.
func (e *RoostError) WithOp(op string) *RoostError {
	return e.WithDetail(DetailOp, op)
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var roostErr *RoostError
	if errors.As(err, &roostErr) {
		return roostErr.Code == code
	}
	return false
}

// GetErrorCode returns the code of the outermost RoostError in the chain,
// or ErrUnknown.
func GetErrorCode(err error) ErrorCode {
	var roostErr *RoostError
	if errors.As(err, &roostErr) {
		return roostErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails merges the details of every RoostError in the chain.
// Inner errors win for duplicate keys: they are closer to the failure.
func GetErrorDetails(err error) map[string]interface{} {
	var chain []*RoostError
	for err != nil {
		if re, ok := err.(*RoostError); ok {
			chain = append(chain, re)
		}
		err = errors.Unwrap(err)
	}
	if len(chain) == 0 {
		return nil
	}
	details := make(map[string]interface{})
	for _, re := range chain {
		for k, v := range re.Details {
			details[k] = v
		}
	}
	return details
}

// FormatDetails renders details as sorted key=value pairs.
func FormatDetails(details map[string]interface{}) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, " ")
}

// Is and As re-export the standard library helpers so callers need a single
// errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }
