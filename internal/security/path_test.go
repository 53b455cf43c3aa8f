package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	assert.NoError(t, ValidateFilePath("/etc/tripchat/config.json"))
	assert.NoError(t, ValidateFilePath("config.json"))
	assert.NoError(t, ValidateFilePath("data/fallback"))

	assert.Error(t, ValidateFilePath(""))
	assert.Error(t, ValidateFilePath("../secrets.json"))
	assert.Error(t, ValidateFilePath("data/../../etc/passwd"))
}

func TestValidateFilePathWithBase(t *testing.T) {
	assert.NoError(t, ValidateFilePathWithBase("conversations.json", "/var/lib/tripchat"))
	assert.NoError(t, ValidateFilePathWithBase("nested/messages.json", "/var/lib/tripchat"))

	assert.Error(t, ValidateFilePathWithBase("../outside.json", "/var/lib/tripchat"))
	assert.Error(t, ValidateFilePathWithBase("/etc/passwd", "/var/lib/tripchat"))
	assert.Error(t, ValidateFilePathWithBase("", "/var/lib/tripchat"))
}
