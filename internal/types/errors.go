package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing process-level errors.
// Per-secret failures are never errors; they travel as FetchOutcome data.
type ErrorCode string

const (
	// Input (stdin payload)
	ErrCodeInputMalformed ErrorCode = "input_malformed"
	ErrCodeInputInvalid   ErrorCode = "input_invalid"

	// Setup (before any fetch is attempted)
	ErrCodeSetupUsage  ErrorCode = "setup_usage"
	ErrCodeSetupClient ErrorCode = "setup_client_failed"

	// Output
	ErrCodeOutputWrite ErrorCode = "output_write_failed"
)

// IsInput reports whether the code describes a bad request payload.
func (c ErrorCode) IsInput() bool {
	return strings.HasPrefix(string(c), "input_")
}

// AppError is the error type returned by setup steps that abort the process.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsInputError reports whether err (or anything it wraps) is an AppError
// describing a bad request payload.
func IsInputError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code.IsInput()
}
