package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"international", "+94771234567", "+*******4567"},
		{"plain digits", "0771234567", "******4567"},
		{"short", "123", "***"},
		{"just plus", "+", "+"},
		{"short with plus", "+123", "+***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhoneNumber(tt.input))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"typical", "dilani.perera@example.com", "d************@example.com"},
		{"single char local", "d@example.com", "*@example.com"},
		{"no at sign", "notanemail", "**********"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskEmail(tt.input))
		})
	}
}

func TestMaskCustomerRef(t *testing.T) {
	assert.Equal(t, "************3c4d", MaskCustomerRef("session-1a2b3c4d"))
	assert.Equal(t, "***", MaskCustomerRef("abc"))
	assert.Equal(t, "", MaskCustomerRef(""))
}

func TestMaskCustomerName(t *testing.T) {
	assert.Equal(t, "D***** P*****", MaskCustomerName("Dilani Perera"))
	assert.Equal(t, "K****", MaskCustomerName("Kasun"))
	assert.Equal(t, "", MaskCustomerName(""))
}

func TestMaskSensitiveFields(t *testing.T) {
	fields := map[string]interface{}{
		"phone":        "+94771234567",
		"email":        "kasun@example.com",
		"customer_ref": "session-1a2b3c4d",
		"status":       "active",
		"count":        3,
	}

	masked := MaskSensitiveFields(fields)

	assert.Equal(t, "+*******4567", masked["phone"])
	assert.Equal(t, "k****@example.com", masked["email"])
	assert.Equal(t, "************3c4d", masked["customer_ref"])
	assert.Equal(t, "active", masked["status"])
	assert.Equal(t, 3, masked["count"])

	assert.Nil(t, MaskSensitiveFields(nil))
}
