package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrCancelled    ErrorCode = "CANCELLED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Formula errors
	ErrFormulaParse   ErrorCode = "FORMULA_PARSE"
	ErrFormulaInvalid ErrorCode = "FORMULA_INVALID"

	// Pipeline errors, one per stage
	ErrMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrNetwork           ErrorCode = "NETWORK"
	ErrHashMismatch      ErrorCode = "HASH_MISMATCH"
	ErrCache             ErrorCode = "CACHE"
	ErrStaging           ErrorCode = "STAGING"
	ErrUnpack            ErrorCode = "UNPACK"
	ErrPathTraversal     ErrorCode = "PATH_TRAVERSAL"
	ErrBuild             ErrorCode = "BUILD"
	ErrIO                ErrorCode = "IO"
	ErrVerification      ErrorCode = "VERIFICATION"
	ErrLock              ErrorCode = "LOCK"
)

// Detail keys used by the pipeline constructors below.
const (
	DetailDependency = "dependency"
	DetailKind       = "kind"
	DetailURL        = "url"
	DetailExpected   = "expected"
	DetailActual     = "actual"
	DetailAlgorithm  = "algorithm"
	DetailEntry      = "entry"
	DetailStep       = "step"
	DetailCommand    = "command"
	DetailExitCode   = "exit_code"
	DetailOutput     = "output"
	DetailPath       = "path"
)

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an Error.
// Context cancellation is reported as ErrCancelled even when it was never wrapped.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an Error
func GetErrorDetails(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// GetDetail returns a single detail value from the outermost Error in the chain.
func GetDetail(err error, key string) (interface{}, bool) {
	details := GetErrorDetails(err)
	if details == nil {
		return nil, false
	}
	v, ok := details[key]
	return v, ok
}
