package strategy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"MASentinel/internal/calculator"
	"MASentinel/internal/model"
)

// ErrDataUnavailable marks a symbol/timeframe with no usable bars.
var ErrDataUnavailable = errors.New("data unavailable")

// BuildSeries orders bars by time, drops bars without a usable close and
// attaches one moving-average series per window.
func BuildSeries(symbol string, tf model.Timeframe, bars []model.OHLCV, windows []int) (*model.Series, error) {
	clean := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			continue
		}
		clean = append(clean, b)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: %s %s has no bars", ErrDataUnavailable, symbol, tf)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time.Before(clean[j].Time) })

	s := &model.Series{
		Symbol:    symbol,
		Timeframe: tf,
		Bars:      clean,
		MA:        make(map[int][]model.MAPoint, len(windows)),
	}
	closes := s.Closes()
	for _, w := range windows {
		s.MA[w] = calculator.RollingSMA(closes, w)
	}
	return s, nil
}
