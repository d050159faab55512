// Package throttle wraps an expensive asynchronous producer function with an
// in-process cache that throttles, deduplicates, and retries its invocations.
//
// # Behavior
//
// A Wrapper derives a cache key from each invocation's arguments and decides
// per key whether to reuse a cached result, attach to an in-flight producer
// call, or dispatch a new one:
//
//   - Within the refresh period after a dispatch, further invocations for the
//     same key never reach the producer.
//   - Concurrent invocations for a key whose producer call is outstanding all
//     coalesce onto that single call and receive its outcome.
//   - An unexpired result short-circuits immediately, even while a background
//     refresh for the same key is in flight (stale-while-revalidate).
//   - A failed refresh falls back to the last successful result as long as it
//     is younger than the max age; otherwise the call is retried up to the
//     configured count before the producer's error surfaces.
//
// Both the pending-call table and the result table are bounded LRU caches when
// a capacity is configured, and expired entries read as absent.
//
// # Usage
//
//	w, err := throttle.New(fetchQuote, throttle.Config{
//		CacheRefreshPeriod: 30 * time.Second,
//		CacheMaxAge:        5 * time.Minute,
//		RetryCount:         2,
//	})
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//
//	quote, err := w.Invoke(ctx, "NYSE:ACME")
//
// ClearCache empties both tables; producer calls already dispatched still run
// to completion and their results land in the (possibly repopulated) result
// table. There is no cancellation of in-flight producer calls.
//
// # Telemetry
//
// When Config.HitRateReportPeriod is set, a background reporter periodically
// hands the configured handler a snapshot of total and passed-through call
// counts, then resets both counters. Prometheus metrics are available by
// attaching a metric.MetricsRegistry via WithMetrics.
package throttle
