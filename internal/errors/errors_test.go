package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeEntryNotFound, "Attendance entry 42 not found")
		assert.Equal(t, "ENTRY_NOT_FOUND: Attendance entry 42 not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeNetworkFailure, "Remote service unreachable", cause)
		assert.Contains(t, err.Error(), "NETWORK_FAILURE")
		assert.Contains(t, err.Error(), "Remote service unreachable")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "employee_id", "reason": "empty"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"NotConfigured", func() *AppError { return NotConfigured("test") }, ErrCodeNotConfigured},
		{"AuthenticationFailed", func() *AppError { return AuthenticationFailed("test") }, ErrCodeAuthenticationFailed},
		{"NetworkFailure", func() *AppError { return NetworkFailure(errors.New("dial error")) }, ErrCodeNetworkFailure},
		{"RemoteAPI", func() *AppError { return RemoteAPI("test") }, ErrCodeRemoteAPI},
		{"EntryNotFound", func() *AppError { return EntryNotFound("42") }, ErrCodeEntryNotFound},
		{"OverlapDetected", func() *AppError { return OverlapDetected("test") }, ErrCodeOverlapDetected},
		{"RecoveryInconclusive", func() *AppError { return RecoveryInconclusive(errors.New("timeout")) }, ErrCodeRecoveryInconclusive},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("employee_id") }, ErrCodeValidation},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.constructor()
			assert.Equal(t, tt.expectedCode, err.Code)
		})
	}
}

func TestAsAppError(t *testing.T) {
	t.Run("unwraps AppError", func(t *testing.T) {
		original := EntryNotFound("42")
		wrapped := fmt.Errorf("close entry: %w", original)

		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeEntryNotFound, appErr.Code)
	})

	t.Run("returns false for plain errors", func(t *testing.T) {
		_, ok := AsAppError(errors.New("plain"))
		assert.False(t, ok)
	})
}

func TestHasCode(t *testing.T) {
	t.Run("matches code through wrapping", func(t *testing.T) {
		err := fmt.Errorf("stop: %w", NetworkFailure(errors.New("timeout")))
		assert.True(t, HasCode(err, ErrCodeNetworkFailure))
		assert.False(t, HasCode(err, ErrCodeRemoteAPI))
	})

	t.Run("nil error has no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, ErrCodeInternal))
	})
}
