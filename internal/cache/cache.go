package cache

import (
	"sync"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
)

// Cache stores values for a limited time
type Cache[K comparable, V any] interface {
	// Set stores a value with the given TTL. A TTL <= 0 never expires.
	Set(key K, value V, ttl time.Duration)
	// Get returns the value and whether it was found and still fresh
	Get(key K) (V, bool)
	Delete(key K)
	Clear()
	// Stats reports hits and misses since creation
	Stats() Stats
}

// Stats counts cache lookups
type Stats struct {
	Hits   int
	Misses int
	Size   int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type memoryCache[K comparable, V any] struct {
	name   string
	items  map[K]entry[V]
	mu     sync.Mutex
	hits   int
	misses int
	log    *logger.Logger
	now    func() time.Time
}

// NewMemoryCache creates an in-memory cache. The name is attached to every log line.
func NewMemoryCache[K comparable, V any](name string, log *logger.Logger) Cache[K, V] {
	return &memoryCache[K, V]{
		name:  name,
		items: make(map[K]entry[V]),
		log:   log,
		now:   time.Now,
	}
}

func (c *memoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: expiresAt}

	c.log.Debug("Item added to cache", map[string]interface{}{
		"cache": c.name,
		"key":   key,
		"size":  len(c.items),
	})
}

func (c *memoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, found := c.items[key]
	if !found {
		c.misses++
		return zero, false
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		delete(c.items, key)
		c.misses++
		c.log.Debug("Cache item expired", map[string]interface{}{
			"cache": c.name,
			"key":   key,
		})
		return zero, false
	}

	c.hits++
	c.log.Debug("Cache hit", map[string]interface{}{
		"cache": c.name,
		"key":   key,
	})
	return item.value, true
}

func (c *memoryCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *memoryCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
	c.log.Debug("Cache cleared", map[string]interface{}{"cache": c.name})
}

func (c *memoryCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.items)}
}

// WithTTL returns a wrapper that applies the same TTL to every Set
func WithTTL[K comparable, V any](cache Cache[K, V], ttl time.Duration) Cache[K, V] {
	return &ttlWrapper[K, V]{Cache: cache, ttl: ttl}
}

type ttlWrapper[K comparable, V any] struct {
	Cache[K, V]
	ttl time.Duration
}

func (w *ttlWrapper[K, V]) Set(key K, value V, _ time.Duration) {
	w.Cache.Set(key, value, w.ttl)
}
