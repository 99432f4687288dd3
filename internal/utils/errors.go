package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, the offending input field, a human-facing message and the underlying error.
type AppError struct {
	Op    string
	Field string
	Msg   string
	Err   error
}

func (e *AppError) Error() string {
	prefix := e.Op
	if e.Field != "" {
		prefix = fmt.Sprintf("%s: field %q", e.Op, e.Field)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewFieldError constructs an AppError attributed to a single input field.
func NewFieldError(op, field, msg string, err error) error {
	return &AppError{Op: op, Field: field, Msg: msg, Err: err}
}

// IsAppError reports whether err wraps an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
