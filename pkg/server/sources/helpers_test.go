package sources

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGetInt(t *testing.T) {
	config := map[string]interface{}{
		"yaml_int":   8,
		"json_float": float64(18),
		"bad":        "eight",
	}

	if got := GetInt(config, "yaml_int", 0); got != 8 {
		t.Errorf("expected 8, got %d", got)
	}
	if got := GetInt(config, "json_float", 0); got != 18 {
		t.Errorf("expected 18, got %d", got)
	}
	if got := GetInt(config, "bad", 6); got != 6 {
		t.Errorf("expected default 6, got %d", got)
	}
	if got := GetInt(config, "missing", 6); got != 6 {
		t.Errorf("expected default 6, got %d", got)
	}
}

func TestGetDecimals_Bounds(t *testing.T) {
	if _, err := GetDecimals(map[string]interface{}{"decimals": 99}, "decimals", 8); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	d, err := GetDecimals(map[string]interface{}{}, "decimals", 8)
	if err != nil || d != 8 {
		t.Fatalf("expected default 8, got %d (%v)", d, err)
	}
}

func TestGetDuration(t *testing.T) {
	d, err := GetDuration(map[string]interface{}{"timeout": "15s"}, "timeout", time.Second)
	if err != nil || d != 15*time.Second {
		t.Fatalf("expected 15s, got %v (%v)", d, err)
	}
	if _, err := GetDuration(map[string]interface{}{"timeout": 15}, "timeout", time.Second); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"2531.45000000", 8, "253145000000"},
		{"0.000123456789", 8, "12345"},
		{"100", 0, "100"},
		{"99.99", 0, "99"},
	}

	for _, tt := range tests {
		got, err := ParseAnswer(tt.in, tt.decimals)
		if err != nil {
			t.Fatalf("ParseAnswer(%q): %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Errorf("ParseAnswer(%q, %d) = %s, want %s", tt.in, tt.decimals, got, tt.want)
		}
	}

	if _, err := ParseAnswer("not-a-number", 8); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestScaleToInteger(t *testing.T) {
	got := ScaleToInteger(decimal.RequireFromString("1.5"), 2)
	if got.Int64() != 150 {
		t.Errorf("expected 150, got %s", got)
	}
}
