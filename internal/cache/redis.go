// Package cache holds the Redis-backed pieces of the service: per-IP
// token buckets for the auth endpoints and a short-lived profile cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client. All methods are safe for concurrent use.
type Cache struct {
	client     *redis.Client
	profileTTL time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithProfileTTL sets how long public profiles stay cached. Non-positive values are ignored.
func WithProfileTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.profileTTL = ttl
		}
	}
}

// New dials redisURL and verifies the connection before returning.
func New(ctx context.Context, redisURL string, opts ...Option) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	// Auth traffic is light; a small pool that fails fast beats queueing logins.
	opt.PoolSize = 8
	opt.MinIdleConns = 1
	opt.PoolTimeout = 2 * time.Second
	opt.DialTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, opts...), nil
}

// NewWithClient wraps an existing client, e.g. one pointed at miniredis.
func NewWithClient(client *redis.Client, opts ...Option) *Cache {
	c := &Cache{client: client, profileTTL: DefaultProfileTTL}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ping reports whether Redis is reachable. It backs the readiness probe.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
