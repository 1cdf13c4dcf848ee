package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
owner: ${TEST_PRICE_GUARD_OWNER}
engine:
  security:
    max_price_deviation_bps: 500
    min_confidence_bps: 0
  circuit_breaker:
    cooldown: 30m
  rate_limit:
    enabled: true
    per_second: 5
  emergency:
    enabled: false
    source:
      type: static
      config:
        price: "2500.00"
assets:
  - asset: ETH/USD
    feeds:
      - type: chainlink
        weight: 7000
        max_deviation_bps: 1000
        heartbeat: 1h
        config:
          rpc_url: http://localhost:8545
          address: "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
      - type: binance
        name: binance-eth
        weight: 3000
        max_deviation_bps: 1000
        heartbeat: 5m
        config:
          symbol: ETHUSDT
server:
  api_keys:
    secret: ops
`

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("TEST_PRICE_GUARD_OWNER", "ops")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "ops", cfg.Owner)
	assert.Equal(t, DefaultPriceDecimals, cfg.Engine.PriceDecimals)
	assert.Equal(t, DefaultAggregateMode, cfg.Engine.AggregateMode)

	params := cfg.Engine.Security.Params()
	assert.Equal(t, uint32(500), params.MaxPriceDeviationBps)
	assert.Equal(t, uint32(0), params.MinConfidenceBps, "explicit zero is kept")
	assert.Equal(t, time.Hour, params.MaxPriceAge)
	assert.Equal(t, uint32(5), params.SuspiciousThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Engine.CircuitBreaker.Cooldown.ToDuration())
	assert.Equal(t, 5, cfg.Engine.RateLimit.Burst)

	require.Len(t, cfg.Assets, 1)
	feeds := cfg.Assets[0].Feeds
	require.Len(t, feeds, 2)
	assert.Equal(t, "ETH/USD.chainlink.0", feeds[0].Name)
	assert.Equal(t, "binance-eth", feeds[1].Name)
	assert.Equal(t, 5*time.Minute, feeds[1].Heartbeat.ToDuration())
	assert.Equal(t, "ETHUSDT", feeds[1].Config["symbol"])

	assert.Equal(t, "2500.00", cfg.Engine.Emergency.Source.Config["price"])
	assert.Equal(t, "emergency", cfg.Engine.Emergency.Source.Name)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTP.Addr)
	assert.Equal(t, map[string]string{"secret": "ops"}, cfg.Server.APIKeys)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultKeyPrefix, cfg.Cache.Redis.KeyPrefix)
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_PRICE_GUARD_OWNER", "ops")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.Owner)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("engine: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, LoadEnv(""))
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_PRICE_GUARD_DOTENV=from-file\n"), 0o600))
	t.Setenv("TEST_PRICE_GUARD_DOTENV", "")
	require.NoError(t, os.Unsetenv("TEST_PRICE_GUARD_DOTENV"))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TEST_PRICE_GUARD_DOTENV"))
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("TEST_PRICE_GUARD_OWNER", "ops")
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing owner", func(c *Config) { c.Owner = "" }, ErrOwnerRequired},
		{"decimals", func(c *Config) { c.Engine.PriceDecimals = 40 }, ErrInvalidPriceDecimals},
		{"aggregate mode", func(c *Config) { c.Engine.AggregateMode = "median" }, ErrInvalidAggregateMode},
		{"security", func(c *Config) { c.Engine.Security.SuspiciousThreshold = 0 }, ErrInvalidSecurity},
		{"cooldown", func(c *Config) { c.Engine.CircuitBreaker.Cooldown = Duration(-time.Second) }, ErrInvalidCooldown},
		{"rate limit", func(c *Config) { c.Engine.RateLimit.PerSecond = 0 }, ErrInvalidRateLimit},
		{"emergency source", func(c *Config) {
			c.Engine.Emergency.Enabled = true
			c.Engine.Emergency.Source.Type = ""
		}, ErrSourceTypeRequired},
		{"no assets", func(c *Config) { c.Assets = nil }, ErrNoAssetsConfigured},
		{"empty asset", func(c *Config) { c.Assets[0].Asset = "" }, ErrAssetRequired},
		{"duplicate asset", func(c *Config) { c.Assets = append(c.Assets, c.Assets[0]) }, ErrDuplicateAsset},
		{"no feeds", func(c *Config) { c.Assets[0].Feeds = nil }, ErrNoFeedsConfigured},
		{"feed type", func(c *Config) { c.Assets[0].Feeds[0].Type = "" }, ErrSourceTypeRequired},
		{"zero weight", func(c *Config) { c.Assets[0].Feeds[0].Weight = 0 }, ErrInvalidWeight},
		{"weight cap", func(c *Config) { c.Assets[0].Feeds[0].Weight = 8000 }, ErrWeightCapExceeded},
		{"heartbeat", func(c *Config) { c.Assets[0].Feeds[1].Heartbeat = 0 }, ErrInvalidHeartbeat},
		{"redis addr", func(c *Config) { c.Cache.Redis.Enabled = true }, ErrRedisAddrRequired},
		{"blank api key", func(c *Config) { c.Server.APIKeys = map[string]string{"": "admin"} }, ErrInvalidAPIKey},
		{"blank api identity", func(c *Config) { c.Server.APIKeys = map[string]string{"key-1": " "} }, ErrInvalidAPIKey},
		{"tls", func(c *Config) { c.Server.HTTP.TLS.Enabled = true }, ErrTLSConfigIncomplete},
		{"tls cert", func(c *Config) {
			c.Server.HTTP.TLS = TLSConfig{Enabled: true, Cert: "/nonexistent/cert.pem", Key: "/nonexistent/key.pem"}
		}, ErrTLSCertNotFound},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.wantErr)
		})
	}
}
