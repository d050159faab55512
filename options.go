package throttle

import (
	"log/slog"

	"github.com/mkls/throttle-async-function/metric"
	"github.com/mkls/throttle-async-function/pkg/cachekey"
)

// Option configures a Wrapper using the functional options pattern.
type Option func(*wrapperOptions)

// wrapperOptions holds internal configuration for wrapper instances.
type wrapperOptions struct {
	name       string
	logger     *slog.Logger
	keyer      cachekey.Keyer
	metricsReg *metric.MetricsRegistry
}

// WithName sets the wrapper's name, used as the label on log records and
// Prometheus metrics. Wrappers sharing a registry need distinct names.
func WithName(name string) Option {
	return func(opts *wrapperOptions) {
		if name != "" {
			opts.name = name
		}
	}
}

// WithLogger sets the structured logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opts *wrapperOptions) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithKeyer sets the key derivation strategy. The default is
// cachekey.SHA256Keyer.
func WithKeyer(keyer cachekey.Keyer) Option {
	return func(opts *wrapperOptions) {
		if keyer != nil {
			opts.keyer = keyer
		}
	}
}

// WithMetrics enables Prometheus metrics export for the wrapper and both of
// its cache tables. If registry is nil, this option is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(opts *wrapperOptions) {
		if registry != nil {
			opts.metricsReg = registry
		}
	}
}

// applyOptions applies functional options to create final wrapper configuration.
func applyOptions(options ...Option) *wrapperOptions {
	opts := &wrapperOptions{
		name:  "default",
		keyer: cachekey.SHA256Keyer{},
	}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	return opts
}
