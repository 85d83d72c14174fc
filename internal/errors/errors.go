package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Configuration
	ErrCodeNotConfigured ErrorCode = "NOT_CONFIGURED"

	// Remote gateway
	ErrCodeAuthenticationFailed  ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeNetworkFailure        ErrorCode = "NETWORK_FAILURE"
	ErrCodeRemoteAPI             ErrorCode = "REMOTE_API_ERROR"
	ErrCodeEntryNotFound         ErrorCode = "ENTRY_NOT_FOUND"
	ErrCodeOverlapDetected       ErrorCode = "OVERLAP_DETECTED"
	ErrCodeRecoveryInconclusive  ErrorCode = "RECOVERY_INCONCLUSIVE"

	// Local API
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// AsAppError unwraps err into an *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Common error constructors

func NotConfigured(message string) *AppError {
	return New(ErrCodeNotConfigured, message)
}

func AuthenticationFailed(message string) *AppError {
	return New(ErrCodeAuthenticationFailed, message)
}

func NetworkFailure(cause error) *AppError {
	return Wrap(ErrCodeNetworkFailure, "Remote service unreachable", cause)
}

func RemoteAPI(message string) *AppError {
	return New(ErrCodeRemoteAPI, message)
}

func EntryNotFound(id string) *AppError {
	return New(ErrCodeEntryNotFound, fmt.Sprintf("Attendance entry %s not found", id))
}

func OverlapDetected(message string) *AppError {
	return New(ErrCodeOverlapDetected, message)
}

func RecoveryInconclusive(cause error) *AppError {
	return Wrap(ErrCodeRecoveryInconclusive, "Recovery could not confirm or discard the persisted session", cause)
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("%s is required", field))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}
