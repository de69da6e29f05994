package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("zipcode is invalid")
	assert.Equal(t, "VALIDATION_ERROR: zipcode is invalid", err.Error())

	cause := fmt.Errorf("connection refused")
	wrapped := NewDatabaseError("failed to create subscription", cause)
	assert.Equal(t, "DATABASE_ERROR: failed to create subscription (caused by: connection refused)", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := NewExternalAPIError("openweathermap API request failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))

	plain := NewAuthError("invalid email address or password")
	assert.Nil(t, plain.Unwrap())
}

func TestAppError_ErrorsAs(t *testing.T) {
	var err error = NewBlockedError("user blocked")

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, BlockedError, appErr.Type)
	assert.Equal(t, "user blocked", appErr.Message)
}

func TestConstructors_Types(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected ErrorType
	}{
		{"validation", NewValidationError("bad input"), ValidationError},
		{"auth", NewAuthError("unauthorized"), AuthError},
		{"conflict", NewConflictError("duplicate"), ConflictError},
		{"not found", NewNotFoundError("missing"), NotFoundError},
		{"blocked", NewBlockedError("blocked"), BlockedError},
		{"database", NewDatabaseError("db down", nil), DatabaseError},
		{"external api", NewExternalAPIError("api down", nil), ExternalAPIError},
		{"email", NewEmailError("smtp down", nil), EmailError},
		{"configuration", NewConfigurationError("missing key", nil), ConfigurationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Type)
		})
	}
}
