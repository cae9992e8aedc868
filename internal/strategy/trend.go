package strategy

import (
	"fmt"
	"math"

	"MASentinel/internal/calculator"
	"MASentinel/internal/model"
)

// Trend modes accepted by NewTrendPredicate.
const (
	TrendMASlope        = "ma_slope"
	TrendPriceSlope     = "price_slope"
	TrendPriceOrMASlope = "price_or_ma_slope"
)

// TrendPredicate decides whether a series is in a qualifying decline.
// Only declining series are checked for touches.
type TrendPredicate interface {
	Name() string
	Declining(s *model.Series) bool
}

// NewTrendPredicate returns the predicate for mode with the given lookback.
func NewTrendPredicate(mode string, lookback int) (TrendPredicate, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("trend lookback must be positive, got %d", lookback)
	}
	switch mode {
	case "", TrendMASlope:
		return MASlope{Lookback: lookback}, nil
	case TrendPriceSlope:
		return PriceSlope{Lookback: lookback}, nil
	case TrendPriceOrMASlope:
		return PriceOrMASlope{Lookback: lookback, Window: 200}, nil
	}
	return nil, fmt.Errorf("unknown trend mode %q", mode)
}

// MASlope compares the Lookback-bar average at the latest bar with the same
// average Lookback bars earlier. Either average being undefined means not
// declining.
type MASlope struct {
	Lookback int
}

func (p MASlope) Name() string { return TrendMASlope }

func (p MASlope) Declining(s *model.Series) bool {
	n := s.Len()
	if n < p.Lookback+1 {
		return false
	}
	points := calculator.RollingSMA(s.Closes(), p.Lookback)
	return fell(points[n-1], points[n-1-p.Lookback])
}

// fell reports whether latest is below earlier by more than summation drift.
func fell(latest, earlier model.MAPoint) bool {
	if !latest.Valid || !earlier.Valid {
		return false
	}
	return earlier.Value-latest.Value > gapEpsilon*math.Abs(earlier.Value)
}

// PriceSlope compares the latest close with the close Lookback bars earlier.
type PriceSlope struct {
	Lookback int
}

func (p PriceSlope) Name() string { return TrendPriceSlope }

func (p PriceSlope) Declining(s *model.Series) bool {
	n := s.Len()
	if n < p.Lookback+1 {
		return false
	}
	return s.Bars[n-1].Close < s.Bars[n-1-p.Lookback].Close
}

// PriceOrMASlope is declining when either the close or the Window-bar
// average fell over Lookback bars.
type PriceOrMASlope struct {
	Lookback int
	Window   int
}

func (p PriceOrMASlope) Name() string { return TrendPriceOrMASlope }

func (p PriceOrMASlope) Declining(s *model.Series) bool {
	if (PriceSlope{Lookback: p.Lookback}).Declining(s) {
		return true
	}
	n := s.Len()
	if n < p.Lookback+1 {
		return false
	}
	points, ok := s.MA[p.Window]
	if !ok {
		points = calculator.RollingSMA(s.Closes(), p.Window)
	}
	return fell(points[n-1], points[n-1-p.Lookback])
}
