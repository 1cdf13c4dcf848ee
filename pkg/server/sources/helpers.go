package sources

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TejasMate/Quantra-sub003/pkg/logging"
)

// MaxDecimals bounds the decimals an adapter may report.
const MaxDecimals = 36

// GetLoggerFromConfig extracts the logger main.go places in every source config
// map, falling back to a noop logger.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetString returns config[key] as a string or defaultVal.
func GetString(config map[string]interface{}, key, defaultVal string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns config[key] as an int. YAML decodes integers as int, JSON as
// float64; both are accepted.
func GetInt(config map[string]interface{}, key string, defaultVal int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v) // #nosec G115 -- config values are small
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}

// GetDecimals returns config[key] as a decimals count, validated against MaxDecimals.
func GetDecimals(config map[string]interface{}, key string, defaultVal uint8) (uint8, error) {
	d := GetInt(config, key, int(defaultVal))
	if d < 0 || d > MaxDecimals {
		return 0, fmt.Errorf("%w: %s must be between 0 and %d", ErrInvalidConfig, key, MaxDecimals)
	}
	return uint8(d), nil // #nosec G115 -- bounded above
}

// GetDuration returns config[key] parsed as a duration string ("30s") or defaultVal.
func GetDuration(config map[string]interface{}, key string, defaultVal time.Duration) (time.Duration, error) {
	raw, ok := config[key]
	if !ok {
		return defaultVal, nil
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a duration string", ErrInvalidConfig, key)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}

// ScaleToInteger converts a decimal amount into an integer answer with the
// given number of decimals, truncating extra precision.
func ScaleToInteger(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// ParseAnswer parses a decimal string (as returned by exchange APIs) into an
// integer answer with the given decimals.
func ParseAnswer(s string, decimals uint8) (*big.Int, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: price %q: %v", ErrInvalidResponse, s, err)
	}
	return ScaleToInteger(amount, decimals), nil
}
