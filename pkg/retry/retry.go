// Package retry provides bounded retry logic with constant or growing backoff
// and optional fallback to a last-known-good value.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides retry configuration
type Config struct {
	MaxAttempts int           // Total number of attempts (0 or 1 = no retry, just run once)
	Delay       time.Duration // Delay between attempts
	Multiplier  float64       // Backoff multiplier; 0 or 1 keeps the delay constant
	MaxDelay    time.Duration // Cap on the delay when a multiplier is used; 0 = no cap
	AddJitter   bool          // Add up to 25% randomness to each pause
}

// DefaultConfig returns sensible defaults: one retry after the first failure
// with a constant 200ms pause.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 2,
		Delay:       200 * time.Millisecond,
		Multiplier:  1.0,
	}
}

// Fallback supplies a substitute value after a failed attempt. Returning true
// short-circuits the retry loop: the substitute is returned to the caller and
// the attempt's error is suppressed.
type Fallback[T any] func() (T, bool)

// Do executes fn with bounded retries.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithFallback(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, nil)
	return err
}

// DoWithResult executes fn with bounded retries and returns its result.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	return DoWithFallback(ctx, cfg, fn, nil)
}

// DoWithFallback executes fn with bounded retries. After every failed attempt
// the fallback, when non-nil, is consulted first: if it yields a value, that
// value is returned and the failure is suppressed. Only when the fallback
// yields nothing and attempts remain does the loop pause and try again. The
// error of the final attempt is returned unwrapped, so callers see the
// producer's own failure.
func DoWithFallback[T any](ctx context.Context, cfg Config, fn func() (T, error), fallback Fallback[T]) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1 // At least try once
	}
	if cfg.Delay < 0 {
		return zero, errors.New("retry: Delay cannot be negative")
	}
	if cfg.Multiplier < 0 {
		return zero, errors.New("retry: Multiplier cannot be negative")
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 1.0
	}
	// Prevent overflow with extremely large multipliers
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}

	var lastErr error
	delay := cfg.Delay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Stale fallback beats both retrying and failing
		if fallback != nil {
			if value, ok := fallback(); ok {
				return value, nil
			}
		}

		// Check if context is cancelled
		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		if err := pause(ctx, delay, cfg.AddJitter); err != nil {
			return zero, fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}

		// Grow the delay, guarding against overflow
		if cfg.Multiplier != 1.0 {
			nextDelay := float64(delay) * cfg.Multiplier
			switch {
			case cfg.MaxDelay > 0 && nextDelay > float64(cfg.MaxDelay):
				delay = cfg.MaxDelay
			case nextDelay > float64(time.Duration(1<<63-1)):
				delay = time.Duration(1<<63 - 1)
			default:
				delay = time.Duration(nextDelay)
			}
		}
	}

	return zero, lastErr
}

// pause sleeps for delay (plus optional jitter) or until ctx is cancelled.
func pause(ctx context.Context, delay time.Duration, addJitter bool) error {
	if delay <= 0 {
		return nil
	}

	sleepDuration := delay
	if addJitter && delay >= 4 {
		// Add up to 25% jitter using thread-safe random
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
		randMu.Unlock()
		sleepDuration = delay + jitter
	}

	timer := time.NewTimer(sleepDuration)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
