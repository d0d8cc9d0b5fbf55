package power

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldpulse/irrigation-advisory/internal/domain"
)

// CachedProvider wraps a SoilMoistureProvider with an in-memory LRU cache.
// POWER publishes one value per day, so repeated recommendation requests for
// the same field within the TTL reuse the last answer.
type CachedProvider struct {
	inner domain.SoilMoistureProvider
	cache *lruCache
}

// NewCachedProvider creates a cache decorator around a soil moisture provider.
func NewCachedProvider(inner domain.SoilMoistureProvider, maxEntries int, ttl time.Duration, clock clockwork.Clock) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: newLRUCache(maxEntries, ttl, clock),
	}
}

func (c *CachedProvider) SoilMoisture(ctx context.Context, lat, lon float64) (*float64, error) {
	// POWER resolves to a half-degree grid; rounding the key to two decimals
	// keeps nearby fields from fragmenting the cache.
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	if pct, ok := c.cache.get(key); ok {
		return &pct, nil
	}
	pct, err := c.inner.SoilMoisture(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	// Only cache real signals so "no data yet" responses are retried.
	if pct != nil {
		c.cache.put(key, *pct)
	}
	return pct, nil
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     float64
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.remove(e)
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.clock.Now().Add(c.ttl)
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: c.clock.Now().Add(c.ttl)}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		c.remove(c.tail)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *lruCache) remove(e *entry) {
	if e == nil {
		return
	}
	c.unlink(e)
	delete(c.entries, e.key)
}
