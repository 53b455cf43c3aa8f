package validation

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"tripchat/internal/constants"
	"tripchat/internal/errors"
)

// ValidatePhoneNumber validates phone number format and length
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.NewValidationError("phone", "phone number cannot be empty")
	}

	cleaned := strings.TrimPrefix(phone, "+")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	if len(cleaned) < constants.MinPhoneNumberLength {
		return errors.NewValidationError("phone",
			fmt.Sprintf("phone number must be at least %d digits", constants.MinPhoneNumberLength))
	}

	if len(cleaned) > constants.MaxPhoneNumberLength {
		return errors.NewValidationError("phone",
			fmt.Sprintf("phone number too long (max %d digits)", constants.MaxPhoneNumberLength))
	}

	for _, char := range cleaned {
		if !unicode.IsDigit(char) {
			return errors.NewValidationError("phone", "phone number must contain only digits")
		}
	}

	return nil
}

// ValidateMessageContent validates message body length and rejects control characters
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.NewValidationError("content", "content cannot be empty")
	}

	if utf8.RuneCountInString(content) > constants.MaxMessageContentLength {
		return errors.NewValidationError("content",
			fmt.Sprintf("content too long (max %d characters)", constants.MaxMessageContentLength))
	}

	for _, char := range content {
		if char == '\x00' {
			return errors.NewValidationError("content", "content contains invalid characters")
		}
	}

	return nil
}

// ValidateSenderName validates display name format and length
func ValidateSenderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationError("senderName", "sender name cannot be empty")
	}

	if utf8.RuneCountInString(name) > constants.MaxSenderNameLength {
		return errors.NewValidationError("senderName",
			fmt.Sprintf("sender name too long (max %d characters)", constants.MaxSenderNameLength))
	}

	for _, char := range name {
		if char == '\x00' || char == '\n' || char == '\r' || char == '\t' {
			return errors.NewValidationError("senderName", "sender name contains invalid characters")
		}
	}

	return nil
}

// ValidateHTTPRequestSize validates incoming HTTP request size
func ValidateHTTPRequestSize(r *http.Request, maxSizeBytes int64) error {
	if r.ContentLength < 0 {
		return errors.NewValidationError("body", "invalid content length")
	}

	if r.ContentLength > maxSizeBytes {
		return errors.NewValidationError("body",
			fmt.Sprintf("request too large: %d bytes (max %d bytes)", r.ContentLength, maxSizeBytes))
	}

	return nil
}

// ValidateStringLength validates string length against bounds
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	if len(value) < minLength {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("%s too short (min %d characters)", fieldName, minLength))
	}

	if len(value) > maxLength {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("%s too long (max %d characters)", fieldName, maxLength))
	}

	return nil
}

// ValidateTimeout validates timeout values
func ValidateTimeout(timeoutSec int, fieldName string) error {
	if timeoutSec < 1 {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("%s must be at least 1 second", fieldName))
	}

	if timeoutSec > 3600 {
		return errors.NewValidationError(fieldName,
			fmt.Sprintf("%s too large (max 3600 seconds)", fieldName))
	}

	return nil
}
