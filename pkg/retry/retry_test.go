package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_Success(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts: 3,
		Delay:       10 * time.Millisecond,
	}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil // Success on third attempt
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts: 4,
		Delay:       time.Millisecond,
	}

	producerErr := errors.New("persistent error")
	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return producerErr
	})

	// The final attempt's error comes back unwrapped
	assert.Equal(t, producerErr, err)
	assert.Equal(t, 4, attempts)
}

func TestRetry_ZeroDelay(t *testing.T) {
	ctx := context.Background()
	cfg := Config{MaxAttempts: 3, Delay: 0}

	start := time.Now()
	attempts := 0
	_ = Do(ctx, cfg, func() error {
		attempts++
		return errors.New("error")
	})

	assert.Equal(t, 3, attempts)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRetry_ConstantDelay(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts: 3,
		Delay:       30 * time.Millisecond,
	}

	start := time.Now()
	_ = Do(ctx, cfg, func() error {
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// Two pauses of 30ms between three attempts
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts: 5,
		Delay:       100 * time.Millisecond,
	}

	attempts := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel() // Cancel during backoff
	}()

	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Less(t, attempts, 5) // Should not complete all attempts
}

func TestDoWithResult(t *testing.T) {
	ctx := context.Background()
	cfg := Config{MaxAttempts: 2, Delay: time.Millisecond}

	attempts := 0
	result, err := DoWithResult(ctx, cfg, func() (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("first attempt fails")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, attempts)
}

func TestDoWithFallback_SuppressesFailure(t *testing.T) {
	ctx := context.Background()
	cfg := Config{MaxAttempts: 3, Delay: time.Millisecond}

	attempts := 0
	result, err := DoWithFallback(ctx, cfg, func() (int, error) {
		attempts++
		return 0, errors.New("producer down")
	}, func() (int, bool) {
		return 14, true
	})

	require.NoError(t, err)
	assert.Equal(t, 14, result)
	// The fallback short-circuits after the first failure; no retries happen
	assert.Equal(t, 1, attempts)
}

func TestDoWithFallback_EmptyFallbackRetries(t *testing.T) {
	ctx := context.Background()
	cfg := Config{MaxAttempts: 3, Delay: time.Millisecond}

	producerErr := errors.New("producer down")
	attempts := 0
	_, err := DoWithFallback(ctx, cfg, func() (int, error) {
		attempts++
		return 0, producerErr
	}, func() (int, bool) {
		return 0, false
	})

	assert.Equal(t, producerErr, err)
	assert.Equal(t, 3, attempts)
}

func TestDoWithFallback_FallbackAvailableMidway(t *testing.T) {
	ctx := context.Background()
	cfg := Config{MaxAttempts: 5, Delay: time.Millisecond}

	attempts := 0
	result, err := DoWithFallback(ctx, cfg, func() (int, error) {
		attempts++
		return 0, errors.New("producer down")
	}, func() (int, bool) {
		// Becomes available after the second failure
		if attempts >= 2 {
			return 99, true
		}
		return 0, false
	})

	require.NoError(t, err)
	assert.Equal(t, 99, result)
	assert.Equal(t, 2, attempts)
}

func TestRetry_GrowingDelay(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		MaxAttempts: 3,
		Delay:       10 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    15 * time.Millisecond,
	}

	start := time.Now()
	_ = Do(ctx, cfg, func() error {
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// 10ms + 15ms (capped from 20ms)
	assert.GreaterOrEqual(t, elapsed, 25*time.Millisecond)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := Do(ctx, Config{}, func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_NegativeDelayRejected(t *testing.T) {
	ctx := context.Background()

	err := Do(ctx, Config{MaxAttempts: 2, Delay: -time.Second}, func() error {
		t.Fatal("fn should not run with invalid config")
		return nil
	})

	assert.Error(t, err)
}
