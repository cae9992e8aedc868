package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timeframe is the bar granularity a series is built on.
type Timeframe string

const (
	Daily  Timeframe = "daily"
	Weekly Timeframe = "weekly"
)

// DefaultTimeframes is the evaluation order used when none is configured.
var DefaultTimeframes = []Timeframe{Daily, Weekly}

// Label returns the human-readable name used in alert text.
func (tf Timeframe) Label() string {
	switch tf {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	default:
		return string(tf)
	}
}

// ParseTimeframe accepts "daily"/"1d" and "weekly"/"1wk".
func ParseTimeframe(s string) (Timeframe, bool) {
	switch s {
	case "daily", "1d", "day":
		return Daily, true
	case "weekly", "1wk", "week":
		return Weekly, true
	}
	return "", false
}

// MAPoint is one moving-average value. Valid is false where fewer than
// window closes exist; Value is meaningless in that case.
type MAPoint struct {
	Value float64
	Valid bool
}

// Series is an ordered bar sequence for one symbol and timeframe with the
// per-window moving averages aligned to Bars.
type Series struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []OHLCV
	MA        map[int][]MAPoint
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Closes extracts closing prices in time order.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Latest returns the most recent bar. The series must not be empty.
func (s *Series) Latest() OHLCV { return s.Bars[len(s.Bars)-1] }

// LatestMA returns the moving average for window at the latest bar.
func (s *Series) LatestMA(window int) MAPoint {
	points, ok := s.MA[window]
	if !ok || len(points) == 0 {
		return MAPoint{}
	}
	return points[len(points)-1]
}
