package throttle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mkls/throttle-async-function/errors"
	"github.com/mkls/throttle-async-function/metric"
	"github.com/mkls/throttle-async-function/pkg/cache"
	"github.com/mkls/throttle-async-function/pkg/cachekey"
	"github.com/mkls/throttle-async-function/pkg/retry"
)

// Producer is the wrapped asynchronous function. Arguments must be
// serializable for key derivation (see pkg/cachekey); the returned error is the
// only error kind the wrapper surfaces to callers.
type Producer[V any] func(ctx context.Context, args ...any) (V, error)

// Wrapper throttles, deduplicates, and retries invocations of a Producer.
// One instance owns its two cache tables and counters; create one wrapper per
// producer, not a process-wide singleton.
type Wrapper[V any] struct {
	name     string
	producer Producer[V]
	config   Config
	keyer    cachekey.Keyer
	logger   *slog.Logger
	metrics  *metric.Metrics

	// mu serializes the dispatch decision so that a pending entry is always
	// registered before any concurrent invocation for the same key can look
	// it up.
	mu      sync.Mutex
	pending cache.Cache[*pendingCall[V]]
	results cache.Cache[V]

	totalCalls         atomic.Int64
	passedThroughCalls atomic.Int64

	reporter  *reporter
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// pendingCall is the in-flight awaitable for one dispatched producer call.
// done is closed when the outcome is available; value and err must not be read
// before that.
type pendingCall[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// New creates a Wrapper around producer. Zero-valued refresh period and max
// age fall back to their defaults; see Config.
func New[V any](producer Producer[V], config Config, options ...Option) (*Wrapper[V], error) {
	if producer == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "throttle", "New", "producer must not be nil")
	}

	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := applyOptions(options...)

	// The context bounds the cache sweepers; Close cancels it.
	ctx, cancel := context.WithCancel(context.Background())

	var pendingOptions []cache.Option[*pendingCall[V]]
	var resultOptions []cache.Option[V]
	if opts.metricsReg != nil {
		pendingOptions = append(pendingOptions,
			cache.WithMetrics[*pendingCall[V]](opts.metricsReg, opts.name+"_pending"))
		resultOptions = append(resultOptions,
			cache.WithMetrics[V](opts.metricsReg, opts.name+"_results"))
	}

	pending, err := cache.New[*pendingCall[V]](ctx, cache.Config{
		TTL:           config.CacheRefreshPeriod,
		MaxItems:      config.MaxCachedItems,
		SweepInterval: config.CacheRefreshPeriod,
	}, pendingOptions...)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "throttle", "New", "create pending table")
	}

	results, err := cache.New[V](ctx, cache.Config{
		TTL:           config.CacheMaxAge,
		MaxItems:      config.MaxCachedItems,
		SweepInterval: config.CacheMaxAge,
	}, resultOptions...)
	if err != nil {
		cancel()
		_ = pending.Close()
		return nil, errors.Wrap(err, "throttle", "New", "create result table")
	}

	w := &Wrapper[V]{
		name:     opts.name,
		producer: producer,
		config:   config,
		keyer:    opts.keyer,
		logger:   opts.logger,
		pending:  pending,
		results:  results,
		cancel:   cancel,
	}
	if opts.metricsReg != nil {
		w.metrics = opts.metricsReg.CoreMetrics()
	}

	if config.HitRateReportPeriod > 0 {
		w.reporter = newReporter(config.HitRateReportPeriod, config.HitRateReportHandler, w.snapshot, w.logger)
	}

	return w, nil
}

// Invoke calls the producer through the cache. Within the refresh period of a
// prior dispatch for the same arguments the producer is not called again:
// either the unexpired result returns immediately, or the caller attaches to
// the outstanding call and receives its outcome. Invoke fails with the
// producer's error only when retries are exhausted and no unexpired result
// exists as a fallback.
//
// ctx cancellation unblocks this caller while waiting on a coalesced call; it
// never cancels the producer call itself, which always runs to completion.
func (w *Wrapper[V]) Invoke(ctx context.Context, args ...any) (V, error) {
	var zero V

	key, err := w.keyer.Key(args)
	if err != nil {
		return zero, err
	}

	w.totalCalls.Add(1)
	if w.metrics != nil {
		w.metrics.InvocationsTotal.WithLabelValues(w.name).Inc()
	}

	w.mu.Lock()
	pc, pendingOK := w.pending.Get(key)
	if !pendingOK {
		// Refresh window elapsed, never dispatched, or the prior dispatch
		// failed without a fallback. The pending entry must be in the table
		// before mu is released so concurrent invocations attach instead of
		// dispatching a duplicate call.
		pc = &pendingCall[V]{done: make(chan struct{})}
		_, _ = w.pending.Set(key, pc)
		w.passedThroughCalls.Add(1)
		if w.metrics != nil {
			w.metrics.PassthroughsTotal.WithLabelValues(w.name).Inc()
		}
		w.logger.Debug("dispatching producer call", "wrapper", w.name, "key", key)

		// The producer call outlives this invocation and must not be cancelled
		// by this caller's context.
		go w.dispatch(context.WithoutCancel(ctx), key, pc, args)
	}
	value, resultOK := w.results.Get(key)
	w.mu.Unlock()

	// Unexpired result wins even while a refresh is in flight.
	if resultOK {
		return value, nil
	}

	if w.metrics != nil {
		gauge := w.metrics.CoalescedWaiters.WithLabelValues(w.name)
		gauge.Inc()
		defer gauge.Dec()
	}

	select {
	case <-pc.done:
		return pc.value, pc.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// dispatch runs one producer call through the retry engine and resolves pc
// with the outcome. A successful attempt writes the result table; a failure
// falls back to an unexpired previous result when one exists.
func (w *Wrapper[V]) dispatch(ctx context.Context, key string, pc *pendingCall[V], args []any) {
	attempts := 0

	value, err := retry.DoWithFallback(ctx, retry.Config{
		MaxAttempts: w.config.RetryCount + 1,
		Delay:       w.config.RetryDelay,
	}, func() (V, error) {
		attempts++
		if attempts > 1 && w.metrics != nil {
			w.metrics.RetryAttemptsTotal.WithLabelValues(w.name).Inc()
		}
		v, err := w.producer(ctx, args...)
		if err == nil {
			// Only producer success writes the result table; a fallback
			// outcome must not refresh the stored result's age.
			_, _ = w.results.Set(key, v)
		}
		return v, err
	}, func() (V, bool) {
		v, ok := w.results.Get(key)
		if ok {
			if w.metrics != nil {
				w.metrics.SuppressedFailuresTotal.WithLabelValues(w.name).Inc()
			}
			w.logger.Warn("producer call failed, serving cached result",
				"wrapper", w.name, "key", key)
		}
		return v, ok
	})

	if err != nil {
		w.logger.Warn("producer call failed with no usable fallback",
			"wrapper", w.name, "key", key, "attempts", attempts, "error", err)

		// Drop the pending marker so the next invocation re-dispatches instead
		// of waiting out the refresh window on a failure. ClearCache or a
		// concurrent eviction may already have replaced it; only remove our own.
		w.mu.Lock()
		if current, ok := w.pending.Get(key); ok && current == pc {
			_, _ = w.pending.Delete(key)
		}
		w.mu.Unlock()
	}

	pc.value = value
	pc.err = err
	close(pc.done)
}

// ClearCache atomically empties both cache tables. Producer calls already
// dispatched are not cancelled; their outcomes still resolve every attached
// caller and successful ones are written into the repopulated result table.
func (w *Wrapper[V]) ClearCache() {
	w.mu.Lock()
	_ = w.pending.Clear()
	_ = w.results.Clear()
	w.mu.Unlock()

	w.logger.Debug("cache cleared", "wrapper", w.name)
}

// snapshot returns the counters accumulated since the previous snapshot and
// resets them to zero.
func (w *Wrapper[V]) snapshot() Report {
	return Report{
		TotalCalls:         w.totalCalls.Swap(0),
		PassedThroughCalls: w.passedThroughCalls.Swap(0),
	}
}

// Stats returns a point-in-time view of the wrapper's counters and both cache
// tables. Unlike the hit-rate reporter, reading stats does not reset anything.
type Stats struct {
	TotalCalls         int64              `json:"total_calls"`
	PassedThroughCalls int64              `json:"passed_through_calls"`
	Pending            cache.StatsSummary `json:"pending"`
	Results            cache.StatsSummary `json:"results"`
}

// Stats returns current wrapper statistics.
func (w *Wrapper[V]) Stats() Stats {
	return Stats{
		TotalCalls:         w.totalCalls.Load(),
		PassedThroughCalls: w.passedThroughCalls.Load(),
		Pending:            w.pending.Stats().Summary(),
		Results:            w.results.Stats().Summary(),
	}
}

// Close stops the hit-rate reporter and both cache sweepers. It does not wait
// for in-flight producer calls, which run to completion on their own. Close is
// idempotent.
func (w *Wrapper[V]) Close() error {
	w.closeOnce.Do(func() {
		if w.reporter != nil {
			w.reporter.stop()
		}
		w.cancel()
		_ = w.pending.Close()
		_ = w.results.Close()
	})
	return nil
}
