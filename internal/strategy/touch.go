package strategy

import (
	"math"

	"MASentinel/internal/model"
)

// gapEpsilon absorbs summation drift in the averages. Relative gaps inside
// it are treated as zero, so a close equal to its average is Near only.
const gapEpsilon = 1e-9

// TouchDetector classifies the latest close against each window's average.
type TouchDetector struct {
	Tolerance float64
	Windows   []int
}

// Detect returns touches for the latest bar in window order. Near and
// BrokenBelow are independent: one window may yield both.
func (d TouchDetector) Detect(s *model.Series) []model.Touch {
	if s == nil || s.Len() == 0 {
		return nil
	}
	c := s.Latest().Close
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return nil
	}

	var touches []model.Touch
	for _, w := range d.Windows {
		ma := s.LatestMA(w)
		if !ma.Valid || ma.Value == 0 {
			continue
		}
		gap := (c - ma.Value) / ma.Value
		if math.IsNaN(gap) || math.IsInf(gap, 0) {
			continue
		}
		if math.Abs(gap) <= gapEpsilon {
			gap = 0
		}
		if math.Abs(gap) <= d.Tolerance+gapEpsilon {
			touches = append(touches, model.Touch{Window: w, GapPct: gap * 100, Kind: model.Near})
		}
		if gap < -gapEpsilon {
			touches = append(touches, model.Touch{Window: w, GapPct: gap * 100, Kind: model.BrokenBelow})
		}
	}
	return touches
}
