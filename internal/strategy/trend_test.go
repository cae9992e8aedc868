package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMASlope(t *testing.T) {
	p := MASlope{Lookback: 20}
	tests := []struct {
		name   string
		closes []float64
		want   bool
	}{
		{"fewer than lookback+1 bars", ramp(20, 100, -1), false},
		{"earlier average undefined", ramp(39, 100, -1), false},
		{"shortest declining series", ramp(40, 100, -1), true},
		{"rising", ramp(100, 50, 1), false},
		{"flat", repeat(80, 100), false},
		{"falling average", touchingCloses(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Declining(mustSeries(tt.closes, nil)))
		})
	}
}

func TestPriceSlope(t *testing.T) {
	p := PriceSlope{Lookback: 20}
	assert.False(t, p.Declining(mustSeries(ramp(20, 100, -1), nil)))
	assert.True(t, p.Declining(mustSeries(ramp(21, 100, -1), nil)))
	// Average still falls but the latest close recovered above the close 20 bars back.
	closes := concat(repeat(100, 30), repeat(90, 19), []float64{101})
	assert.False(t, p.Declining(mustSeries(closes, nil)))
}

func TestPriceOrMASlope(t *testing.T) {
	p := PriceOrMASlope{Lookback: 20, Window: 200}
	// Price rose over the lookback but the 200-bar average is still falling.
	closes := concat(ramp(230, 300, -1), ramp(20, 71, 1))
	s := mustSeries(closes, []int{200})
	assert.False(t, PriceSlope{Lookback: 20}.Declining(s))
	assert.True(t, p.Declining(s))

	// Without a precomputed window the average is derived on the fly.
	assert.True(t, p.Declining(mustSeries(closes, nil)))
	assert.False(t, p.Declining(mustSeries(ramp(300, 10, 1), nil)))
}

func TestNewTrendPredicate(t *testing.T) {
	for mode, want := range map[string]string{
		"":                  TrendMASlope,
		TrendMASlope:        TrendMASlope,
		TrendPriceSlope:     TrendPriceSlope,
		TrendPriceOrMASlope: TrendPriceOrMASlope,
	} {
		p, err := NewTrendPredicate(mode, 20)
		require.NoError(t, err)
		assert.Equal(t, want, p.Name())
	}

	_, err := NewTrendPredicate("elif", 20)
	assert.Error(t, err)
	_, err = NewTrendPredicate(TrendMASlope, 0)
	assert.Error(t, err)
}
