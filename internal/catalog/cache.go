package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
	"github.com/cidadao-ativo/cidadao-api/internal/platform/cache"
)

// Entry is a fetched listing and when it was fetched.
type Entry struct {
	Bills     []bill.Bill `json:"bills"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

// Cache keeps listings by query key. A miss is (Entry{}, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	return nil
}

// RedisCache stores listings as JSON in Redis or Dragonfly, under the cache's
// namespace. Entries are kept for ttl, which should be well beyond the
// staleness window so that stale copies remain available when the API is down.
type RedisCache struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(c *cache.Cache, ttl time.Duration) *RedisCache {
	return &RedisCache{store: c, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	ok, err := c.store.GetJSON(ctx, key, &e)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, e Entry) error {
	return c.store.SetJSON(ctx, key, e, c.ttl)
}
