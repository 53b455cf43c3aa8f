package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewTransientBackendError("list_conversations", cause)

	assert.Equal(t, ErrCodeTransientBackend, GetCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list_conversations")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("senderName", "sender name is required")

	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "senderName", err.Context["field"])
	assert.Equal(t, "Invalid senderName: sender name is required", GetUserMessage(err))
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("conversation", "abc-123")

	assert.True(t, IsNotFound(err))
	assert.Equal(t, "conversation", err.Context["resource"])
	assert.Equal(t, "abc-123", err.Context["identifier"])
}

func TestFallbackIOErrorIsNotRetryable(t *testing.T) {
	err := NewFallbackIOError("write_messages", fmt.Errorf("disk full"))

	assert.True(t, IsFallbackIO(err))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "Chat is temporarily unavailable", GetUserMessage(err))
}

func TestGetCodeOnPlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternalError, GetCode(fmt.Errorf("boom")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(fmt.Errorf("boom")))
}

func TestHeuristicFailure(t *testing.T) {
	err := NewHeuristicFailure("name_extraction", fmt.Errorf("bad pattern"))

	assert.Equal(t, ErrCodeHeuristicFailure, GetCode(err))
	assert.Equal(t, "name_extraction", err.Context["stage"])
}
