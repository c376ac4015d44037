package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialDelay:   time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		BackoffFactor:  2.0,
		JitterFraction: 0,
		RetryableError: func(err error) bool {
			return Classify(err) == OutcomeRetryable
		},
	}
}

func TestExecuteWithRetrySucceedsAfterTransientFaults(t *testing.T) {
	rm := NewRetryManager(testRetryConfig(), zerolog.Nop())

	calls := 0
	err := rm.ExecuteWithRetry(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryNonRetryableReturnsImmediately(t *testing.T) {
	rm := NewRetryManager(testRetryConfig(), zerolog.Nop())

	calls := 0
	err := rm.ExecuteWithRetry(context.Background(), "test", func() error {
		calls++
		return ErrTxNotFound
	})
	require.ErrorIs(t, err, ErrTxNotFound)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetryExhaustsBudget(t *testing.T) {
	rm := NewRetryManager(testRetryConfig(), zerolog.Nop())

	calls := 0
	err := rm.ExecuteWithRetry(context.Background(), "test", func() error {
		calls++
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial try + 3 retries
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestExecuteWithRetryHonorsContextCancellation(t *testing.T) {
	cfg := testRetryConfig()
	cfg.InitialDelay = time.Hour // retry sleep must be interruptible

	rm := NewRetryManager(cfg, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- rm.ExecuteWithRetry(ctx, "test", func() error {
			return errors.New("flaky")
		})
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not honor cancellation")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := testRetryConfig()
	rm := NewRetryManager(cfg, zerolog.Nop())

	assert.Equal(t, 1*time.Millisecond, rm.CalculateBackoff(0))
	assert.Equal(t, 2*time.Millisecond, rm.CalculateBackoff(1))
	assert.Equal(t, 4*time.Millisecond, rm.CalculateBackoff(2))

	// Growth caps at MaxDelay.
	assert.Equal(t, 10*time.Millisecond, rm.CalculateBackoff(20))
}

func TestCalculateBackoffJitterBounds(t *testing.T) {
	cfg := testRetryConfig()
	cfg.JitterFraction = 0.2
	rm := NewRetryManager(cfg, zerolog.Nop())

	base := 4 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := rm.CalculateBackoff(2)
		assert.GreaterOrEqual(t, d, base-base/10)
		assert.LessOrEqual(t, d, base+base/10)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeNotFound, Classify(ErrTxNotFound))
	assert.Equal(t, OutcomeMalformed, Classify(ErrMalformedRef))
	assert.Equal(t, OutcomeRetryable, Classify(errors.New("dial tcp: refused")))

	// Wrapped sentinels classify the same as bare ones.
	wrapped := errors.Join(errors.New("chain eth"), ErrTxNotFound)
	assert.Equal(t, OutcomeNotFound, Classify(wrapped))
}
