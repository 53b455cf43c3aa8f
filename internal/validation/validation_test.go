package validation

import (
	"net/http"
	"strings"
	"testing"

	"tripchat/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"valid international", "+94771234567", false},
		{"valid with spaces", "+94 77 123 4567", false},
		{"valid with dashes", "077-123-4567", false},
		{"empty", "", true},
		{"too short", "12345", true},
		{"too long", "123456789012345678901", true},
		{"letters", "+94abc34567", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePhoneNumber(tt.phone)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("Hi, I need help with my booking"))
	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent("   "))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", 4001)))
	assert.Error(t, ValidateMessageContent("hello\x00world"))
}

func TestValidateSenderName(t *testing.T) {
	assert.NoError(t, ValidateSenderName("Dilani Perera"))
	assert.Error(t, ValidateSenderName(""))
	assert.Error(t, ValidateSenderName("a\nb"))
	assert.Error(t, ValidateSenderName(strings.Repeat("a", 101)))
}

func TestValidateHTTPRequestSize(t *testing.T) {
	req := &http.Request{ContentLength: 100}
	assert.NoError(t, ValidateHTTPRequestSize(req, 1024))

	req.ContentLength = 2048
	assert.Error(t, ValidateHTTPRequestSize(req, 1024))

	req.ContentLength = -1
	assert.Error(t, ValidateHTTPRequestSize(req, 1024))
}

func TestValidateStringLength(t *testing.T) {
	assert.NoError(t, ValidateStringLength("hello", "field", 1, 10))
	assert.Error(t, ValidateStringLength("", "field", 1, 10))
	assert.Error(t, ValidateStringLength("this is way too long", "field", 1, 10))
}

func TestValidateTimeout(t *testing.T) {
	assert.NoError(t, ValidateTimeout(30, "pollTimeout"))
	assert.Error(t, ValidateTimeout(0, "pollTimeout"))
	assert.Error(t, ValidateTimeout(4000, "pollTimeout"))
}
