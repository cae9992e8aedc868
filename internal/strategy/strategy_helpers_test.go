package strategy

import (
	"MASentinel/internal/collector"
	"MASentinel/internal/model"
)

var defaultWindows = []int{200, 240, 365}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// touchingCloses is 400 integer closes whose last value equals the MA200
// exactly while the 20-bar average is falling.
func touchingCloses() []float64 {
	return concat(
		repeat(120, 200),
		repeat(101, 76),
		repeat(100, 24),
		repeat(100, 80),
		repeat(96, 19),
		[]float64{100},
	)
}

func mustSeries(closes []float64, windows []int) *model.Series {
	s, err := BuildSeries("TEST", model.Daily, collector.BarsFromCloses(closes), windows)
	if err != nil {
		panic(err)
	}
	return s
}

func touchesFor(touches []model.Touch, window int, kind model.Classification) []model.Touch {
	var out []model.Touch
	for _, t := range touches {
		if t.Window == window && t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
