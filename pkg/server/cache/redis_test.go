package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TejasMate/Quantra-sub003/pkg/server/engine"
)

func TestRedisCache_Key(t *testing.T) {
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "", time.Minute)
	defer c.Close()

	assert.Equal(t, "price-guard:latest:ETH/USD", c.key("ETH/USD"))

	custom := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "prod", 0)
	defer custom.Close()
	assert.Equal(t, "prod:latest:BTC/USD", custom.key("BTC/USD"))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), Options{Addr: mr.Addr(), TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_Store(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	price := engine.AcceptedPrice{
		Price:      decimal.NewFromInt(10300000000),
		Timestamp:  ts,
		Confidence: 9500,
		Valid:      true,
	}

	require.NoError(t, c.Store(context.Background(), "ETH/USD", price))

	raw, err := mr.Get("price-guard:latest:ETH/USD")
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.Equal(t, "10300000000", fields["price"])
	assert.Equal(t, "2025-06-01T12:00:00Z", fields["timestamp"])
	assert.Equal(t, 9500.0, fields["confidence"])
	assert.Equal(t, true, fields["valid"])

	var decoded engine.AcceptedPrice
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.True(t, price.Price.Equal(decoded.Price))
	assert.True(t, ts.Equal(decoded.Timestamp))

	assert.Equal(t, time.Minute, mr.TTL("price-guard:latest:ETH/USD"))
}

func TestRedisCache_StoreOverwritesWithoutTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "BTC/USD", engine.AcceptedPrice{Price: decimal.NewFromInt(1), Valid: true}))
	require.NoError(t, c.Store(ctx, "BTC/USD", engine.AcceptedPrice{Price: decimal.NewFromInt(2), Valid: true}))

	raw, err := mr.Get("price-guard:latest:BTC/USD")
	require.NoError(t, err)

	var decoded engine.AcceptedPrice
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.True(t, decimal.NewFromInt(2).Equal(decoded.Price))
	assert.Zero(t, mr.TTL("price-guard:latest:BTC/USD"))
	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCache_StoreFailsWhenServerGone(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	err := c.Store(context.Background(), "ETH/USD", engine.AcceptedPrice{Price: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set latest price in redis")
}
