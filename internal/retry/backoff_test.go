package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       false,
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	b := NewBackoff(fastConfig())
	calls := 0

	err := b.Retry(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	b := NewBackoff(fastConfig())
	calls := 0

	err := b.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	b := NewBackoff(fastConfig())
	calls := 0
	wantErr := errors.New("still failing")

	err := b.Retry(context.Background(), func() error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancellation(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := b.Retry(ctx, func() error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithPredicate_NonRetryableFailsFast(t *testing.T) {
	b := NewBackoff(fastConfig())
	calls := 0
	fatal := errors.New("bad input")

	err := b.RetryWithPredicate(context.Background(),
		func() error {
			calls++
			return fatal
		},
		func(err error) bool { return false },
	)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay_ExponentialAndCapped(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       false,
	})

	assert.Equal(t, 10*time.Millisecond, b.GetNextDelay(1))
	assert.Equal(t, 20*time.Millisecond, b.GetNextDelay(2))
	assert.Equal(t, 40*time.Millisecond, b.GetNextDelay(3))
	assert.Equal(t, 50*time.Millisecond, b.GetNextDelay(4))
	assert.Equal(t, 50*time.Millisecond, b.GetNextDelay(9))
}

func TestCalculateDelay_JitterStaysInBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	})

	for i := 0; i < 100; i++ {
		d := b.GetNextDelay(2)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(models.RetryConfig{
		InitialBackoffMs: 200,
		MaxBackoffMs:     2000,
		MaxAttempts:      4,
	})

	assert.Equal(t, 200*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.MaxDelay)
	assert.Equal(t, 4, cfg.MaxAttempts)

	defaults := FromRetryConfig(models.RetryConfig{})
	assert.Equal(t, DefaultBackoffConfig(), defaults)
}
