package useragent

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 10 * time.Minute
)

// Cache memoizes Parse results. Dashboards recompute statistics over the same
// window log repeatedly, so the same handful of UA strings is parsed over and
// over; the cache keeps that cost flat. Entries expire so a burst of
// one-off strings cannot pin memory.
type Cache struct {
	entries *lru.LRU[string, Parsed]
}

// NewCache creates a parse cache holding up to size entries for ttl.
// Non-positive arguments fall back to defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{entries: lru.NewLRU[string, Parsed](size, nil, ttl)}
}

// Parse returns the cached classification for raw, computing and storing it
// on a miss. The zero-value raw string is parsed directly and never cached.
func (c *Cache) Parse(raw string) Parsed {
	if raw == "" {
		return Parse(raw)
	}
	if p, ok := c.entries.Get(raw); ok {
		return p
	}
	p := Parse(raw)
	c.entries.Add(raw, p)
	return p
}

// Len reports how many classifications are currently cached.
func (c *Cache) Len() int {
	return c.entries.Len()
}
