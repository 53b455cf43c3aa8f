package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogger_IncludesErrorCode(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	logger := NewLogger(base)

	logger.LogError(NewTransientBackendError("list_conversations", errors.New("connection refused")), "store call failed")

	out := buf.String()
	assert.Contains(t, out, string(ErrCodeTransientBackend))
	assert.Contains(t, out, `"retryable":true`)
	assert.Contains(t, out, "store call failed")
}

func TestLogger_RetryableGoesToWarn(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	logger := NewLogger(base)

	logger.LogRetryableError(NewTransientBackendError("poll", errors.New("timeout")), "retrying")
	assert.Contains(t, buf.String(), `"level":"warning"`)

	buf.Reset()
	logger.LogRetryableError(NewFallbackIOError("read", errors.New("corrupt")), "giving up")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLogger_MasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})
	logger := NewLogger(base)

	logger.LogWarn(errors.New("lookup failed"), "customer lookup failed", logrus.Fields{
		"customer_phone": "+94771234567",
		"customer_email": "dilani.perera@example.com",
	})

	out := buf.String()
	assert.NotContains(t, out, "+94771234567")
	assert.NotContains(t, out, "dilani.perera@")
	assert.Contains(t, out, "4567")
}

func TestNewLogger_NilBase(t *testing.T) {
	logger := NewLogger(nil)
	assert.NotNil(t, logger.Logger)
}
