package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkls/throttle-async-function/errors"
)

// Config contains configuration for cache creation.
type Config struct {
	// TTL is the time-to-live for entries. Entries older than TTL read as
	// absent. Required.
	TTL time.Duration `json:"ttl"`

	// MaxItems is the maximum number of entries. Zero means unbounded. Above
	// the bound the least-recently-used entry is evicted.
	MaxItems int `json:"max_items"`

	// SweepInterval is how often the background sweeper physically removes
	// expired entries. Zero disables the sweeper; expired entries are then
	// removed lazily on read.
	SweepInterval time.Duration `json:"sweep_interval"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:           5 * time.Minute,
		MaxItems:      0,
		SweepInterval: 1 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("ttl must be positive, got %v", c.TTL))
	}
	if c.MaxItems < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("max_items must not be negative, got %d", c.MaxItems))
	}
	if c.SweepInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("sweep_interval must not be negative, got %v", c.SweepInterval))
	}
	return nil
}

// New creates a cache from the provided configuration. The context bounds the
// lifetime of the background sweeper, when one is configured; Close stops it
// earlier.
func New[V any](ctx context.Context, config Config, options ...Option[V]) (Cache[V], error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "cache", "New", "config validation")
	}

	opts := applyOptions(options...)
	if config.SweepInterval > 0 && opts.sweepInterval == 0 {
		opts.sweepInterval = config.SweepInterval
	}

	return newStore[V](ctx, config.TTL, config.MaxItems, opts)
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "1h", "5m", "30s") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		TTL           json.RawMessage `json:"ttl,omitempty"`
		SweepInterval json.RawMessage `json:"sweep_interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.TTL) > 0 {
		ttl, err := ParseDurationField(aux.TTL, "ttl")
		if err != nil {
			return err
		}
		c.TTL = ttl
	}

	if len(aux.SweepInterval) > 0 {
		interval, err := ParseDurationField(aux.SweepInterval, "sweep_interval")
		if err != nil {
			return err
		}
		c.SweepInterval = interval
	}

	return nil
}

// ParseDurationField parses a JSON duration field that can be either:
// - An integer (nanoseconds) for backward compatibility
// - A string (duration like "1h", "5m", "30s")
func ParseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	// Try parsing as string first (most common case)
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	// Fall back to integer (nanoseconds) for backward compatibility
	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1h') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
