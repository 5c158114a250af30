// Package cache provides the Redis access layer used for rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// clientName identifies letterbox connections in CLIENT LIST.
const clientName = "letterbox"

// Cache wraps the Redis client that backs rate limiting.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and pings it. Rate limit checks sit on the
// request path, so socket timeouts are kept short.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opt.ClientName == "" {
		opt.ClientName = clientName
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = time.Second
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = 500 * time.Millisecond
	opt.WriteTimeout = 500 * time.Millisecond
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity for the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client. Tests use it to flush state.
func (c *Cache) Client() *redis.Client {
	return c.client
}
