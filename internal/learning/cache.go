package learning

import (
	"sync"
	"time"
)

// Cache is the small TTL cache the learning loop uses for pattern and
// feedback lookups that are expensive to recompute on every edit.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, val any, ttl time.Duration)
}

type cacheEntry struct {
	val     any
	expires time.Time
}

// TTLCache is an in-memory Cache with per-entry expiry.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewTTLCache creates an empty TTLCache.
func NewTTLCache() *TTLCache {
	return &TTLCache{entries: map[string]cacheEntry{}, now: time.Now}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.val, true
}

func (c *TTLCache) Set(key string, val any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{val: val, expires: c.now().Add(ttl)}
}
