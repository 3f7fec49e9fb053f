package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeForbidden         ErrorCode = "forbidden"
	CodeInvalidCode       ErrorCode = "invalid_code"
	CodeIllegalTransition ErrorCode = "illegal_transition"
	CodeAmountMismatch    ErrorCode = "amount_mismatch"
	CodeConflict          ErrorCode = "conflict"
	CodeSubmissionFailed  ErrorCode = "submission_failed"
	CodeValidationError   ErrorCode = "validation_error"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (se ServiceError) Error() string {
	return se.Message
}

func (se ServiceError) Unwrap() error {
	return se.Err
}

// New creates a ServiceError with a formatted message.
func New(code ErrorCode, format string, args ...any) ServiceError {
	return ServiceError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a ServiceError keeping the cause chain intact.
func Wrap(code ErrorCode, err error, format string, args ...any) ServiceError {
	return ServiceError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf extracts the error code from err, or "" if err does not carry one.
func CodeOf(err error) ErrorCode {
	var se ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Is reports whether err carries the given error code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
