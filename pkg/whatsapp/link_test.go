package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLink(t *testing.T) {
	link, err := Link("+94 77 123 4567", "Hello, I need help with my booking")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/94771234567?text=Hello%2C+I+need+help+with+my+booking", link)
}

func TestLink_NoText(t *testing.T) {
	link, err := Link("+94771234567", "")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/94771234567", link)
}

func TestLink_StripsFormatting(t *testing.T) {
	link, err := Link("077-123-4567", "")
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/0771234567", link)
}

func TestLink_TooShort(t *testing.T) {
	_, err := Link("12345", "hi")
	assert.Error(t, err)

	_, err = Link("", "hi")
	assert.Error(t, err)
}
