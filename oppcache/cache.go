// Package oppcache holds arbitrage candidates keyed by (startToken,
// seedPool), ordered by expected profit, subject to TTL expiry and
// generation-based invalidation.
package oppcache

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arbiter-labs/hyperarb/types"
)

// DefaultTTL is the opportunity lifetime when none is configured.
const DefaultTTL = 60 * time.Second

// Metrics is the narrow recorder interface metrics.Registry.OppCache()
// satisfies, kept local to avoid oppcache depending on the metrics package.
type Metrics interface {
	SetSize(n int)
	RecordPop(result string)
	RecordInsert()
}

type noopMetrics struct{}

func (noopMetrics) SetSize(int)        {}
func (noopMetrics) RecordPop(string)   {}
func (noopMetrics) RecordInsert()      {}

// Clock abstracts time.Now for deterministic expiry tests.
type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Cache is the profit-ordered opportunity queue, guarded by a single
// mutex; every operation runs in O(log n). It has no size limit: entries
// leave only through PopBest, expiry, replacement under the same key, or
// Clear.
type Cache struct {
	mu      sync.Mutex
	heap    maxHeap
	entries map[types.CacheKey]*types.CacheEntry

	ttl     time.Duration
	clock   Clock
	metrics Metrics

	nextGen atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

// WithClock injects a Clock, for tests that need control over expiry.
func WithClock(clock Clock) Option { return func(c *Cache) { c.clock = clock } }

// WithMetrics attaches a recorder.
func WithMetrics(m Metrics) Option { return func(c *Cache) { c.metrics = m } }

// New builds an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[types.CacheKey]*types.CacheEntry),
		ttl:     DefaultTTL,
		clock:   realClock{},
		metrics: noopMetrics{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Insert adds or overwrites the entry for key,: the old map
// entry (if any) is replaced; its heap item is left in place and will be
// skipped as stale on pop since its generation no longer matches the map.
func (c *Cache) Insert(key types.CacheKey, swap types.SwapInfo, expectedProfit types.I256, source types.OpportunitySource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.nextGen.Add(1)
	expiresAt := c.clock.Now().Add(c.ttl)

	c.entries[key] = &types.CacheEntry{
		Key: key, SwapInfo: swap, Generation: gen, ExpiresAt: expiresAt, Source: source,
	}
	heap.Push(&c.heap, types.HeapItem{
		ExpectedProfit: expectedProfit, Generation: gen, Key: key, ExpiresAt: expiresAt,
	})
	c.metrics.RecordInsert()
	c.metrics.SetSize(len(c.entries))
}

// PopBest repeatedly pops the heap top, discarding stale or expired items,
// and returns the first valid CacheEntry, or nil if none remain. Ties among
// equal-profit items are broken by younger (higher) generation.
func (c *Cache) PopBest() *types.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for c.heap.Len() > 0 {
		item := heap.Pop(&c.heap).(types.HeapItem)
		entry, ok := c.entries[item.Key]
		if !ok || entry.Generation != item.Generation {
			c.metrics.RecordPop("stale")
			continue
		}
		if entry.IsExpired(now) {
			delete(c.entries, item.Key)
			c.metrics.RecordPop("expired")
			c.metrics.SetSize(len(c.entries))
			continue
		}
		delete(c.entries, item.Key)
		c.metrics.RecordPop("hit")
		c.metrics.SetSize(len(c.entries))
		return entry
	}
	c.metrics.RecordPop("empty")
	return nil
}

// RemoveExpired drains leading expired/stale heap items without returning
// anything, for periodic background cleanup.
func (c *Cache) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for c.heap.Len() > 0 {
		top := c.heap[0]
		entry, ok := c.entries[top.Key]
		if !ok || entry.Generation != top.Generation || entry.IsExpired(now) {
			heap.Pop(&c.heap)
			if ok && entry.Generation == top.Generation {
				delete(c.entries, top.Key)
			}
			removed++
			continue
		}
		break
	}
	c.metrics.SetSize(len(c.entries))
	return removed
}

// Size returns the number of live map entries (not heap length, which may
// include stale items awaiting lazy cleanup).
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heap = nil
	c.entries = make(map[types.CacheKey]*types.CacheEntry)
	c.metrics.SetSize(0)
}
