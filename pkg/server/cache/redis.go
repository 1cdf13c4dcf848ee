// Package cache mirrors accepted prices into Redis for downstream readers.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TejasMate/Quantra-sub003/pkg/server/engine"
)

// DefaultKeyPrefix namespaces every key written by RedisCache.
const DefaultKeyPrefix = "price-guard"

// Options configure a RedisCache.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache stores the latest accepted price of every asset.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ engine.PriceCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, opts.KeyPrefix, opts.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(asset string) string {
	return fmt.Sprintf("%s:latest:%s", c.prefix, asset)
}

// Store implements engine.PriceCache. A zero TTL keeps the key forever.
func (c *RedisCache) Store(ctx context.Context, asset string, price engine.AcceptedPrice) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("failed to marshal price: %w", err)
	}
	if err := c.client.Set(ctx, c.key(asset), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest price in redis: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
