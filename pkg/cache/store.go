package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkls/throttle-async-function/errors"
)

// store is the single Cache implementation: TTL expiry combined with optional
// LRU capacity eviction. maxItems <= 0 means unbounded.
type store[V any] struct {
	mu       sync.RWMutex
	maxItems int
	ttl      time.Duration
	items    map[string]*list.Element // key -> list element
	order    *list.List               // doubly-linked list for LRU ordering
	stats    *Statistics              // ALWAYS initialized
	metrics  *cacheMetrics            // Optional, if metrics enabled
	evictFn  EvictCallback[V]         // Optional callback

	// Background sweep coordination
	sweepInterval time.Duration
	shutdown      chan struct{}
	done          chan struct{}
}

// newStore creates a store and, when sweepInterval > 0, starts the background
// sweeper with the caller's context.
func newStore[V any](
	ctx context.Context, ttl time.Duration, maxItems int, opts *cacheOptions[V],
) (*store[V], error) {
	// Stats are always initialized; observability is not optional
	stats := NewStatistics()

	var metrics *cacheMetrics
	// Optionally expose stats as Prometheus metrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newStore", "metrics registration")
		}
	}

	c := &store[V]{
		maxItems:      maxItems,
		ttl:           ttl,
		items:         make(map[string]*list.Element),
		order:         list.New(),
		stats:         stats,
		metrics:       metrics,
		evictFn:       opts.evictCallback,
		sweepInterval: opts.sweepInterval,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	if c.sweepInterval > 0 {
		go c.sweep(ctx)
	} else {
		// No sweeper; Close has nothing to wait for
		close(c.done)
	}

	return c, nil
}

// Get retrieves a value by key, checking expiry and updating LRU order.
func (c *store[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return zero, false
	}

	ent := element.Value.(*entry[V])

	if ent.isExpired(time.Now()) {
		c.removeElement(element)
		c.stats.Eviction()
		c.stats.Miss()
		c.stats.UpdateSize(int64(len(c.items)))
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.recordMiss()
			c.metrics.updateSize(len(c.items))
		}

		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.order.MoveToFront(element)

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	return ent.value, true
}

// Has reports whether an unexpired entry exists for key. Like Get, it counts
// toward hit/miss statistics and refreshes recency.
func (c *store[V]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores a value for key, resetting the entry's TTL and LRU position.
func (c *store[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	expiresAt := time.Now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Update existing entry in place
	if element, exists := c.items[key]; exists {
		ent := element.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(element)

		c.stats.Set()
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		return false, nil
	}

	ent := &entry[V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}
	element := c.order.PushFront(ent)
	c.items[key] = element

	// Capacity bound is independent of TTL: over capacity, the LRU entry goes
	// first even if other entries are already expired.
	if c.maxItems > 0 && len(c.items) > c.maxItems {
		c.evictLRU()
	}

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(len(c.items))
	}

	return true, nil
}

// Delete removes an entry by key.
func (c *store[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false, nil
	}

	c.removeElement(element)

	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(len(c.items))
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (c *store[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			ent := element.Value.(*entry[V])
			c.evictFn(ent.key, ent.value)
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}

	return nil
}

// Size returns the current number of entries in the cache.
func (c *store[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns unexpired keys in LRU order (most recently used first).
func (c *store[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	now := time.Now()

	for element := c.order.Front(); element != nil; element = element.Next() {
		ent := element.Value.(*entry[V])
		if now.Before(ent.expiresAt) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *store[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background sweeper and waits for it to finish.
func (c *store[V]) Close() error {
	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for sweeper to finish")
	}
}

// evictLRU removes the least recently used item from the cache.
// Must be called with mutex held.
func (c *store[V]) evictLRU() {
	element := c.order.Back()
	if element != nil {
		c.removeElement(element)
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
	}
}

// removeElement removes an element from both the list and map.
// Must be called with mutex held.
func (c *store[V]) removeElement(element *list.Element) {
	ent := element.Value.(*entry[V])
	delete(c.items, ent.key)
	c.order.Remove(element)

	if c.evictFn != nil {
		c.evictFn(ent.key, ent.value)
	}
}

// sweep runs in a background goroutine and periodically removes expired entries.
func (c *store[V]) sweep(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *store[V]) removeExpired() {
	now := time.Now()
	var expired []*entry[V]

	c.mu.Lock()

	for element := c.order.Front(); element != nil; {
		next := element.Next()
		ent := element.Value.(*entry[V])

		if ent.isExpired(now) {
			expired = append(expired, ent)
			delete(c.items, ent.key)
			c.order.Remove(element)
		}

		element = next
	}

	size := len(c.items)
	c.mu.Unlock()

	// Callbacks run outside the lock
	if c.evictFn != nil {
		for _, ent := range expired {
			c.evictFn(ent.key, ent.value)
		}
	}

	if len(expired) > 0 {
		for range expired {
			c.stats.Eviction()
		}
		c.stats.UpdateSize(int64(size))
		if c.metrics != nil {
			for range expired {
				c.metrics.recordEviction()
			}
			c.metrics.updateSize(size)
		}
	}
}
