// Package cache provides a generic, thread-safe key-value store with per-entry
// TTL expiry and optional LRU capacity eviction.
//
// Entries whose age exceeds the configured TTL read as absent even before they
// are physically removed. When a capacity is configured, exceeding it evicts
// the least-recently-used entry regardless of its TTL state. Reads and writes
// both refresh recency. Statistics are always collected; Prometheus metrics
// are optional via functional options.
package cache

import (
	"time"

	"github.com/mkls/throttle-async-function/errors"
)

// Cache is a bounded key→value mapping with TTL-based expiry and LRU eviction.
// All implementations are safe for concurrent use.
type Cache[V any] interface {
	// Get retrieves a value by key. Expired entries read as absent.
	Get(key string) (V, bool)

	// Set stores a value with the given key, resetting its TTL. Returns true if
	// a new entry was created, false if an existing entry was updated.
	Set(key string, value V) (bool, error)

	// Has reports whether an unexpired entry exists for key.
	Has(key string) bool

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries, including any expired
	// entries not yet swept.
	Size() int

	// Keys returns the unexpired keys in LRU order, most recently used first.
	Keys() []string

	// Stats returns the cache statistics. Never nil.
	Stats() *Statistics

	// Close stops the background sweeper, if one is running.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
// It receives the key and value of the evicted entry. The callback may run
// with the cache lock held and must not call back into the cache.
type EvictCallback[V any] func(key string, value V)

// entry is a stored value with its expiry deadline.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *entry[V]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
