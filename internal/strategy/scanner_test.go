package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"MASentinel/internal/collector"
	"MASentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(f *collector.MockFetcher) *Scanner {
	return &Scanner{
		Fetcher:    f,
		Names:      f,
		Trend:      MASlope{Lookback: 20},
		Detector:   TouchDetector{Tolerance: 0.01, Windows: defaultWindows},
		Windows:    defaultWindows,
		Timeframes: model.DefaultTimeframes,
		Timeout:    time.Second,
	}
}

func TestScanSymbol_CloseEqualToMA200(t *testing.T) {
	f := collector.NewMockFetcher()
	f.SetBars("XYZ", model.Daily, collector.BarsFromCloses(touchingCloses()))
	f.Names["XYZ"] = "XYZ Corp"

	rec, evals := newTestScanner(f).Inspect(context.Background(), "XYZ")

	near := touchesFor(rec.Daily, 200, model.Near)
	require.Len(t, near, 1)
	assert.Equal(t, 0.0, near[0].GapPct)
	assert.Empty(t, touchesFor(rec.Daily, 200, model.BrokenBelow))
	assert.Empty(t, rec.Weekly)
	assert.Equal(t, "XYZ Corp", rec.Name)

	require.Len(t, evals, 2)
	assert.Equal(t, OutcomeIncluded, evals[0].Outcome)
	assert.Equal(t, 400, evals[0].Bars)
	assert.Equal(t, OutcomeNoData, evals[1].Outcome)
	assert.True(t, IsDataUnavailable(evals[1].Err))
}

func TestScanSymbol_DecimalCloseEqualToMA200(t *testing.T) {
	closes := touchingCloses()
	for i := range closes {
		closes[i] *= 0.4884
	}
	f := collector.NewMockFetcher()
	f.SetBars("XYZ", model.Daily, collector.BarsFromCloses(closes))

	rec := newTestScanner(f).ScanSymbol(context.Background(), "XYZ")

	near := touchesFor(rec.Daily, 200, model.Near)
	require.Len(t, near, 1)
	assert.Equal(t, 0.0, near[0].GapPct)
	assert.Empty(t, touchesFor(rec.Daily, 200, model.BrokenBelow))
}

func TestScanSymbol_ShortHistory(t *testing.T) {
	f := collector.NewMockFetcher()
	f.SetBars("ABC", model.Daily, collector.BarsFromCloses(ramp(50, 100, -0.5)))
	f.SetBars("ABC", model.Weekly, collector.BarsFromCloses(ramp(50, 100, -0.5)))

	rec, evals := newTestScanner(f).Inspect(context.Background(), "ABC")
	assert.False(t, rec.HasTouches())
	assert.Equal(t, "ABC", rec.Name)
	for _, ev := range evals {
		assert.Equal(t, OutcomeNoTouches, ev.Outcome)
	}
}

func TestScanSymbol_NotDecliningSkipsTouches(t *testing.T) {
	// Latest close sits on a flat MA200 but nothing is falling.
	f := collector.NewMockFetcher()
	f.SetBars("FLAT", model.Daily, collector.BarsFromCloses(repeat(100, 400)))
	f.SetBars("FLAT", model.Weekly, collector.BarsFromCloses(repeat(100, 400)))

	rec, evals := newTestScanner(f).Inspect(context.Background(), "FLAT")
	assert.False(t, rec.HasTouches())
	for _, ev := range evals {
		assert.Equal(t, OutcomeNotDeclining, ev.Outcome)
	}
}

func TestScanSymbol_FetchErrorIsAbsorbed(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Errs["ERR"] = errors.New("provider down")

	rec := newTestScanner(f).ScanSymbol(context.Background(), "ERR")
	assert.Equal(t, model.SymbolRecord{Symbol: "ERR", Name: "ERR"}, rec)
}

func TestScanSymbol_TimeoutTreatedAsNoData(t *testing.T) {
	f := collector.NewMockFetcher()
	f.SetBars("SLOW", model.Daily, collector.BarsFromCloses(touchingCloses()))
	f.Delay = 200 * time.Millisecond
	s := newTestScanner(f)
	s.Timeout = 20 * time.Millisecond

	rec, evals := s.Inspect(context.Background(), "SLOW")
	assert.False(t, rec.HasTouches())
	for _, ev := range evals {
		assert.Equal(t, OutcomeNoData, ev.Outcome)
		assert.ErrorIs(t, ev.Err, context.DeadlineExceeded)
	}
}

func TestScanSymbol_WeeklyOnly(t *testing.T) {
	f := collector.NewMockFetcher()
	f.SetBars("WK", model.Weekly, collector.BarsFromCloses(touchingCloses()))
	s := newTestScanner(f)
	s.Timeframes = []model.Timeframe{model.Weekly}

	rec := s.ScanSymbol(context.Background(), "WK")
	assert.Empty(t, rec.Daily)
	assert.NotEmpty(t, touchesFor(rec.Weekly, 200, model.Near))
	assert.Equal(t, 1, f.Calls("WK"))
}
