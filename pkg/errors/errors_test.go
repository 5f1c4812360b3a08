package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsAlreadyExists(NewAlreadyExistsError("alice")))
	assert.True(t, IsInvalidCredentials(NewInvalidCredentialsError()))
	assert.True(t, IsUnauthenticated(NewUnauthenticatedError("no session")))
	assert.True(t, IsUnauthenticated(NewInvalidCredentialsError()))
	assert.True(t, IsNotFound(NewNotFoundError("user")))

	assert.False(t, IsAlreadyExists(NewNotFoundError("user")))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
}

func TestClassification_WrappedErrors(t *testing.T) {
	err := fmt.Errorf("while registering: %w", NewAlreadyExistsError("alice"))

	assert.True(t, IsAlreadyExists(err))

	yerr := GetYunaError(err)
	assert.NotNil(t, yerr)
	assert.Equal(t, ErrCodeAlreadyExists, yerr.Code)
}

func TestYunaError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewIOError("failed to write credentials", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestGetYunaError_Plain(t *testing.T) {
	assert.Nil(t, GetYunaError(fmt.Errorf("plain error")))
}
