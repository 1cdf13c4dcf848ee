package security

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDetector_Validate(t *testing.T) {
	params := DefaultParams()

	tests := []struct {
		name       string
		price      int64
		confidence uint32
		previous   int64
		wantErr    error
	}{
		{"zero price", 0, 10000, 0, ErrInvalidPrice},
		{"low confidence", 100, 4999, 0, ErrLowConfidence},
		{"confidence at minimum", 100, 5000, 0, nil},
		{"no previous price", 1000000, 10000, 0, nil},
		{"within deviation", 110, 10000, 100, nil},
		{"manipulation", 111, 10000, 100, ErrManipulationDetected},
		{"manipulation down", 89, 10000, 100, ErrManipulationDetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Detector{}.Validate(params, decimal.NewFromInt(tt.price), tt.confidence, decimal.NewFromInt(tt.previous))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	bad := []func(*Params){
		func(p *Params) { p.MaxPriceDeviationBps = 0 },
		func(p *Params) { p.MinConfidenceBps = 10001 },
		func(p *Params) { p.MaxPriceAge = 0 },
		func(p *Params) { p.SuspiciousThreshold = 0 },
	}
	for _, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
	}
}
