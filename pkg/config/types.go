package config

import (
	"time"

	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
)

// Config is the root configuration structure
type Config struct {
	Owner   string        `yaml:"owner"`
	Engine  EngineConfig  `yaml:"engine"`
	Assets  []AssetConfig `yaml:"assets"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the price engine
type EngineConfig struct {
	PriceDecimals  int                  `yaml:"price_decimals"`
	AggregateMode  string               `yaml:"aggregate_mode"`
	Security       SecurityConfig       `yaml:"security"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Emergency      EmergencyConfig      `yaml:"emergency"`
}

// SecurityConfig holds the initial security parameters
type SecurityConfig struct {
	MaxPriceDeviationBps uint32   `yaml:"max_price_deviation_bps"`
	MinConfidenceBps     *uint32  `yaml:"min_confidence_bps"` // nil = default, 0 is allowed
	MaxPriceAge          Duration `yaml:"max_price_age"`
	SuspiciousThreshold  uint32   `yaml:"suspicious_threshold"`
}

// Params converts the section to engine parameters.
func (c SecurityConfig) Params() security.Params {
	p := security.Params{
		MaxPriceDeviationBps: c.MaxPriceDeviationBps,
		MaxPriceAge:          c.MaxPriceAge.ToDuration(),
		SuspiciousThreshold:  c.SuspiciousThreshold,
	}
	if c.MinConfidenceBps != nil {
		p.MinConfidenceBps = *c.MinConfidenceBps
	}
	return p
}

// CircuitBreakerConfig configures the circuit breaker
type CircuitBreakerConfig struct {
	Cooldown Duration `yaml:"cooldown"`
}

// RateLimitConfig configures the per-caller query limiter
type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled"`
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// EmergencyConfig configures the emergency oracle
type EmergencyConfig struct {
	Enabled bool         `yaml:"enabled"`
	Source  SourceConfig `yaml:"source"`
}

// AssetConfig lists the feeds of one asset
type AssetConfig struct {
	Asset string       `yaml:"asset"`
	Feeds []FeedConfig `yaml:"feeds"`
}

// SourceConfig configures a price source adapter
type SourceConfig struct {
	Type   string                 `yaml:"type"`
	Name   string                 `yaml:"name"`
	Config map[string]interface{} `yaml:"config"`
}

// FeedConfig configures one weighted feed
type FeedConfig struct {
	SourceConfig    `yaml:",inline"`
	Weight          uint32   `yaml:"weight"`
	MaxDeviationBps uint32   `yaml:"max_deviation_bps"`
	Heartbeat       Duration `yaml:"heartbeat"`
}

// CacheConfig configures the accepted price cache
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis connection
type RedisConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTL       Duration `yaml:"ttl"`
}

// ServerConfig configures the API surfaces
type ServerConfig struct {
	HTTP      HTTPConfig        `yaml:"http"`
	WebSocket WSConfig          `yaml:"websocket"`
	APIKeys   map[string]string `yaml:"api_keys"` // bearer key -> caller identity
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string    `yaml:"addr"`
	TLS  TLSConfig `yaml:"tls"`
}

// WSConfig configures the WebSocket server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
