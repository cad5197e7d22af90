package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheTTL is how long a GET response is reused.
	DefaultCacheTTL = time.Second

	maxCacheEntries = 512
)

// responseCache holds raw GET bodies keyed by endpoint and params. Every
// clear bumps the generation; a body fetched under an older generation is
// never stored.
type responseCache struct {
	mu  sync.Mutex
	gen uint64
	lru *expirable.LRU[string, []byte] // nil when caching is off
}

func newResponseCache(ttl time.Duration) *responseCache {
	c := &responseCache{}
	if ttl > 0 {
		c.lru = expirable.NewLRU[string, []byte](maxCacheEntries, nil, ttl)
	}
	return c
}

func (c *responseCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *responseCache) get(key string) ([]byte, bool) {
	if c.lru == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// set stores body unless the cache was cleared after gen was read.
func (c *responseCache) set(key string, body []byte, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru == nil || gen != c.gen {
		return false
	}
	c.lru.Add(key, body)
	return true
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.lru != nil {
		c.lru.Purge()
	}
}

func (c *responseCache) clearPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.lru == nil {
		return 0
	}
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) && c.lru.Remove(k) {
			n++
		}
	}
	return n
}

func (c *responseCache) len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

type freshKey struct{}

// Fresh marks ctx so GETs made with it skip cached bodies and never join a
// request that was already in flight.
func Fresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshKey{}, true)
}

func isFresh(ctx context.Context) bool {
	v, _ := ctx.Value(freshKey{}).(bool)
	return v
}
