package calculator

import (
	"math"

	"MASentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// RollingSMA computes the simple moving average of closes over period at
// every position. Positions with fewer than period closes are left invalid,
// as is every position when len(closes) < period.
func RollingSMA(closes []float64, period int) []model.MAPoint {
	out := make([]model.MAPoint, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	sma := talib.Sma(closes, period)
	for i := period - 1; i < len(sma); i++ {
		v := sma[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = model.MAPoint{Value: v, Valid: true}
	}
	return out
}
