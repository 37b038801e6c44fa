package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")

	// ErrConfig aborts the run before any file or database is touched.
	ErrConfig = errors.New("invalid configuration")

	// ErrExtraction marks a source file that yielded no usable records.
	ErrExtraction = errors.New("extraction failed")

	// ErrDuplicateRecord marks an insert rejected by the fingerprint
	// uniqueness constraint. Informational, never aborts the run.
	ErrDuplicateRecord = errors.New("duplicate record")

	// ErrPersistence marks a record-level insert failure on a live connection.
	ErrPersistence = errors.New("persistence failed")

	// ErrConnectionLost marks a database-level failure; remaining files are
	// not attempted once it is raised.
	ErrConnectionLost = errors.New("database connection lost")

	// ErrOutputWrite marks a spreadsheet write failure. It is logged as a
	// warning and never blocks record persistence.
	ErrOutputWrite = errors.New("output write failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
