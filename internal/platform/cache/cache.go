// Package cache connects to the Dragonfly/Redis instance that holds bill
// listings. Every key the service writes lives under one namespace so an
// instance can be shared.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName = "cidadao-api"

	// DefaultNamespace prefixes every key written by the service.
	DefaultNamespace = "cidadao"
)

// Cache wraps a Redis/Dragonfly client.
type Cache struct {
	Client    *redis.Client
	namespace string
}

// Option configures a Cache.
type Option func(*Cache)

// WithNamespace replaces DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		c.namespace = ns
	}
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the cache and pings it.
func New(ctx context.Context, url string, opts ...Option) (*Cache, error) {
	ropts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	ropts.ClientName = clientName
	ropts.DialTimeout = 5 * time.Second
	// Listing entries are small; a slow reply means the cache is unhealthy and
	// the catalog should go to the upstream instead.
	ropts.ReadTimeout = 2 * time.Second
	ropts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(ropts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return Wrap(client, opts...), nil
}

// Wrap builds a Cache over an existing client.
func Wrap(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{Client: client, namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespaced key for name.
func (c *Cache) Key(name string) string {
	if c.namespace == "" {
		return name
	}
	return c.namespace + ":" + name
}

// GetJSON decodes the value stored under name into v. A missing key reports
// false with no error.
func (c *Cache) GetJSON(ctx context.Context, name string, v any) (bool, error) {
	data, err := c.Client.Get(ctx, c.Key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// SetJSON stores v under name for ttl. A zero ttl keeps the key forever.
func (c *Cache) SetJSON(ctx context.Context, name string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := c.Client.Set(ctx, c.Key(name), data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// Name identifies the cache in readiness reports.
func (c *Cache) Name() string {
	return "cache"
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
