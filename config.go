package throttle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkls/throttle-async-function/errors"
	"github.com/mkls/throttle-async-function/pkg/cache"
)

// Default configuration values applied by DefaultConfig.
const (
	DefaultCacheRefreshPeriod = 60 * time.Second
	DefaultCacheMaxAge        = 300 * time.Second
	DefaultRetryDelay         = 200 * time.Millisecond
)

// Config contains configuration for a Wrapper.
//
// The zero value is usable: New fills CacheRefreshPeriod and CacheMaxAge with
// their defaults when left zero. RetryDelay is taken literally; a zero delay
// retries without pausing. Start from DefaultConfig to get the 200ms default
// retry delay.
type Config struct {
	// CacheRefreshPeriod is how long after a dispatch the next invocation for
	// the same key triggers a fresh producer call.
	CacheRefreshPeriod time.Duration `json:"cache_refresh_period"`

	// CacheMaxAge is how long a stored result stays usable. Results older than
	// this read as absent and no longer serve as failure fallbacks.
	CacheMaxAge time.Duration `json:"cache_max_age"`

	// MaxCachedItems bounds each cache table. Zero means unbounded. Above the
	// bound the least-recently-used entry is evicted.
	MaxCachedItems int `json:"max_cached_items"`

	// RetryCount is the number of additional producer attempts after the
	// first failure.
	RetryCount int `json:"retry_count"`

	// RetryDelay is the pause between successive retries. Zero skips the pause.
	RetryDelay time.Duration `json:"retry_delay"`

	// HitRateReportPeriod enables periodic telemetry when positive: every
	// period the HitRateReportHandler receives the counters accumulated since
	// the previous report, after which they reset to zero.
	HitRateReportPeriod time.Duration `json:"hit_rate_report_period"`

	// HitRateReportHandler receives the periodic report. Nil means reports are
	// discarded.
	HitRateReportHandler ReportHandler `json:"-"`
}

// DefaultConfig returns the default wrapper configuration: 60s refresh period,
// 5m max age, unbounded caches, no retries, 200ms retry delay, reporting
// disabled.
func DefaultConfig() Config {
	return Config{
		CacheRefreshPeriod: DefaultCacheRefreshPeriod,
		CacheMaxAge:        DefaultCacheMaxAge,
		RetryDelay:         DefaultRetryDelay,
	}
}

// withDefaults fills zero-valued periods with their defaults.
func (c Config) withDefaults() Config {
	if c.CacheRefreshPeriod == 0 {
		c.CacheRefreshPeriod = DefaultCacheRefreshPeriod
	}
	if c.CacheMaxAge == 0 {
		c.CacheMaxAge = DefaultCacheMaxAge
	}
	return c
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.CacheRefreshPeriod < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("cache_refresh_period must not be negative, got %v", c.CacheRefreshPeriod))
	}
	if c.CacheMaxAge < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("cache_max_age must not be negative, got %v", c.CacheMaxAge))
	}
	if c.MaxCachedItems < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("max_cached_items must not be negative, got %d", c.MaxCachedItems))
	}
	if c.RetryCount < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("retry_count must not be negative, got %d", c.RetryCount))
	}
	if c.RetryDelay < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("retry_delay must not be negative, got %v", c.RetryDelay))
	}
	if c.HitRateReportPeriod < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "throttle", "Validate",
			fmt.Sprintf("hit_rate_report_period must not be negative, got %v", c.HitRateReportPeriod))
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "30s", "5m") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		CacheRefreshPeriod  json.RawMessage `json:"cache_refresh_period,omitempty"`
		CacheMaxAge         json.RawMessage `json:"cache_max_age,omitempty"`
		RetryDelay          json.RawMessage `json:"retry_delay,omitempty"`
		HitRateReportPeriod json.RawMessage `json:"hit_rate_report_period,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		raw  json.RawMessage
		name string
		dst  *time.Duration
	}{
		{aux.CacheRefreshPeriod, "cache_refresh_period", &c.CacheRefreshPeriod},
		{aux.CacheMaxAge, "cache_max_age", &c.CacheMaxAge},
		{aux.RetryDelay, "retry_delay", &c.RetryDelay},
		{aux.HitRateReportPeriod, "hit_rate_report_period", &c.HitRateReportPeriod},
	}

	for _, field := range fields {
		if len(field.raw) == 0 {
			continue
		}
		duration, err := cache.ParseDurationField(field.raw, field.name)
		if err != nil {
			return err
		}
		*field.dst = duration
	}

	return nil
}
