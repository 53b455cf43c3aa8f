package config

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher_LoadsInitialConfig(t *testing.T) {
	path := writeConfig(t, `{
		"primary": {"driver": "sqlite3", "dsn": "/tmp/chat.db"},
		"fallback": {"dir": "/var/lib/tripchat"}
	}`)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cw := NewConfigWatcher(path, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cw.Start(ctx) }()

	require.Eventually(t, func() bool {
		return cw.GetConfig() != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "sqlite3", cw.Primary().Driver)
	assert.True(t, cw.Primary().IsConfigured())

	cancel()
	assert.NoError(t, <-done)
}

func TestConfigWatcher_StartFailsOnBadConfig(t *testing.T) {
	path := writeConfig(t, `{not json`)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cw := NewConfigWatcher(path, logger)

	err := cw.Start(context.Background())
	assert.Error(t, err)
}

func TestConfigWatcher_PrimaryEmptyBeforeStart(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cw := NewConfigWatcher("/nonexistent", logger)

	assert.False(t, cw.Primary().IsConfigured())
	assert.Nil(t, cw.GetConfig())
}
