package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/TejasMate/Quantra-sub003/pkg/server/security"
)

// Default values
const (
	DefaultPriceDecimals = 8
	DefaultAggregateMode = "weighted"
	DefaultHTTPAddr      = ":8080"
	DefaultWSAddr        = ":8081"
	DefaultMetricsAddr   = ":9091"
	DefaultMetricsPath   = "/metrics"
	DefaultKeyPrefix     = "price-guard"
)

// LoadEnv loads variables from a dotenv file. A missing file is not an error;
// variables already set in the environment win.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	e := &cfg.Engine
	if e.PriceDecimals == 0 {
		e.PriceDecimals = DefaultPriceDecimals
	}
	if e.AggregateMode == "" {
		e.AggregateMode = DefaultAggregateMode
	}

	// Security defaults
	if e.Security.MaxPriceDeviationBps == 0 {
		e.Security.MaxPriceDeviationBps = security.DefaultMaxPriceDeviationBps
	}
	if e.Security.MinConfidenceBps == nil {
		v := uint32(security.DefaultMinConfidenceBps)
		e.Security.MinConfidenceBps = &v
	}
	if e.Security.MaxPriceAge == 0 {
		e.Security.MaxPriceAge = Duration(security.DefaultMaxPriceAge)
	}
	if e.Security.SuspiciousThreshold == 0 {
		e.Security.SuspiciousThreshold = security.DefaultSuspiciousThreshold
	}
	if e.CircuitBreaker.Cooldown == 0 {
		e.CircuitBreaker.Cooldown = Duration(security.DefaultCooldown)
	}
	if e.RateLimit.Enabled && e.RateLimit.Burst == 0 {
		e.RateLimit.Burst = max(1, int(e.RateLimit.PerSecond))
	}

	// Feed names default to "<asset>.<type>.<index>"
	for i := range cfg.Assets {
		for j := range cfg.Assets[i].Feeds {
			f := &cfg.Assets[i].Feeds[j]
			if f.Name == "" {
				f.Name = fmt.Sprintf("%s.%s.%d", cfg.Assets[i].Asset, f.Type, j)
			}
		}
	}
	if e.Emergency.Source.Name == "" {
		e.Emergency.Source.Name = "emergency"
	}

	if cfg.Cache.Redis.KeyPrefix == "" {
		cfg.Cache.Redis.KeyPrefix = DefaultKeyPrefix
	}

	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = DefaultHTTPAddr
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = DefaultWSAddr
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
