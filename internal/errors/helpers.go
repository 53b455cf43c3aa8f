package errors

import "fmt"

// Common error creators for frequent use cases

// NewValidationError creates a validation error naming the offending field
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewNotFoundError creates a not found error with resource context
func NewNotFoundError(resource, identifier string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("identifier", identifier).
		WithUserMessage(fmt.Sprintf("%s not found", resource))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewTransientBackendError wraps a primary-store failure. Transient errors are
// recovered via the fallback store and never surfaced to callers.
func NewTransientBackendError(operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeTransientBackend, fmt.Sprintf("primary store %s failed", operation)).
		WithContext("operation", operation)
}

// NewFallbackIOError wraps a fallback-store failure. These are fatal for the
// call: with both backends down there is nothing left to serve from.
func NewFallbackIOError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeFallbackIO, fmt.Sprintf("fallback store %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Chat is temporarily unavailable")
}

// NewHeuristicFailure wraps an error from welcome-dispatch or name-extraction.
// Callers log these and move on; they must never block the primary write.
func NewHeuristicFailure(stage string, err error) *AppError {
	return Wrap(err, ErrCodeHeuristicFailure, fmt.Sprintf("%s heuristic failed", stage)).
		WithContext("stage", stage)
}

// Predicates used at the API boundary to map errors onto responses.

func IsValidation(err error) bool { return HasCode(err, ErrCodeValidationFailed) }
func IsNotFound(err error) bool   { return HasCode(err, ErrCodeNotFound) }
func IsFallbackIO(err error) bool { return HasCode(err, ErrCodeFallbackIO) }
