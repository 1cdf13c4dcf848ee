// Package config provides configuration loading and validation for price-guard.
package config

import "errors"

var (
	// ErrOwnerRequired indicates that owner must be specified.
	ErrOwnerRequired = errors.New("owner must be specified")
	// ErrInvalidPriceDecimals indicates price_decimals out of range.
	ErrInvalidPriceDecimals = errors.New("invalid price_decimals")
	// ErrInvalidAggregateMode indicates that the aggregation mode is invalid.
	ErrInvalidAggregateMode = errors.New("invalid aggregate_mode")
	// ErrInvalidSecurity indicates invalid security parameters.
	ErrInvalidSecurity = errors.New("invalid security parameters")
	// ErrInvalidCooldown indicates a negative breaker cooldown.
	ErrInvalidCooldown = errors.New("invalid circuit breaker cooldown")
	// ErrInvalidRateLimit indicates an unusable rate limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
	// ErrNoAssetsConfigured indicates that no assets are configured.
	ErrNoAssetsConfigured = errors.New("at least one asset must be configured")
	// ErrAssetRequired indicates an asset entry without an identifier.
	ErrAssetRequired = errors.New("asset must be specified")
	// ErrDuplicateAsset indicates an asset configured twice.
	ErrDuplicateAsset = errors.New("duplicate asset")
	// ErrNoFeedsConfigured indicates an asset without feeds.
	ErrNoFeedsConfigured = errors.New("at least one feed must be configured")
	// ErrSourceTypeRequired indicates that source type is required.
	ErrSourceTypeRequired = errors.New("source type is required")
	// ErrInvalidWeight indicates a feed weight outside 1-10000 bps.
	ErrInvalidWeight = errors.New("weight must be within 1-10000 bps")
	// ErrWeightCapExceeded indicates feed weights summing above 10000 bps.
	ErrWeightCapExceeded = errors.New("total feed weight exceeds 10000 bps")
	// ErrInvalidHeartbeat indicates a non-positive heartbeat.
	ErrInvalidHeartbeat = errors.New("heartbeat must be positive")
	// ErrRedisAddrRequired indicates an enabled cache without an address.
	ErrRedisAddrRequired = errors.New("cache.redis.addr must be specified")
	// ErrInvalidAPIKey indicates an api_keys entry with a blank key or identity.
	ErrInvalidAPIKey = errors.New("api keys must have a non-empty key and identity")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
