package config

import (
	"fmt"
	"os"
	"strings"
)

// maxPriceDecimals mirrors the adapter decimals bound.
const maxPriceDecimals = 36

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if cfg.Owner == "" {
		return ErrOwnerRequired
	}

	if err := validateEngineConfig(&cfg.Engine); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if len(cfg.Assets) == 0 {
		return ErrNoAssetsConfigured
	}
	seen := make(map[string]bool, len(cfg.Assets))
	for i, asset := range cfg.Assets {
		if err := validateAssetConfig(&asset); err != nil {
			return fmt.Errorf("asset %d (%s): %w", i, asset.Asset, err)
		}
		if seen[asset.Asset] {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset.Asset)
		}
		seen[asset.Asset] = true
	}

	if cfg.Cache.Redis.Enabled && cfg.Cache.Redis.Addr == "" {
		return ErrRedisAddrRequired
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateEngineConfig(cfg *EngineConfig) error {
	if cfg.PriceDecimals < 0 || cfg.PriceDecimals > maxPriceDecimals {
		return fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidPriceDecimals, cfg.PriceDecimals, maxPriceDecimals)
	}

	if strings.ToLower(cfg.AggregateMode) != DefaultAggregateMode {
		return fmt.Errorf("%w: %s (must be 'weighted')", ErrInvalidAggregateMode, cfg.AggregateMode)
	}

	if err := cfg.Security.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSecurity, err)
	}

	if cfg.CircuitBreaker.Cooldown < 0 {
		return ErrInvalidCooldown
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("%w: per_second must be positive", ErrInvalidRateLimit)
	}

	if cfg.Emergency.Enabled && cfg.Emergency.Source.Type == "" {
		return fmt.Errorf("emergency source: %w", ErrSourceTypeRequired)
	}

	return nil
}

func validateAssetConfig(cfg *AssetConfig) error {
	if cfg.Asset == "" {
		return ErrAssetRequired
	}
	if len(cfg.Feeds) == 0 {
		return ErrNoFeedsConfigured
	}

	var total uint64
	for i, feed := range cfg.Feeds {
		if feed.Type == "" {
			return fmt.Errorf("feed %d: %w", i, ErrSourceTypeRequired)
		}
		if feed.Weight == 0 || feed.Weight > 10000 {
			return fmt.Errorf("feed %d (%s): %w", i, feed.Name, ErrInvalidWeight)
		}
		if feed.Heartbeat <= 0 {
			return fmt.Errorf("feed %d (%s): %w", i, feed.Name, ErrInvalidHeartbeat)
		}
		total += uint64(feed.Weight)
	}
	if total > 10000 {
		return fmt.Errorf("%w: %d", ErrWeightCapExceeded, total)
	}

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	for key, identity := range cfg.APIKeys {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(identity) == "" {
			return ErrInvalidAPIKey
		}
	}

	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return ErrTLSConfigIncomplete
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
