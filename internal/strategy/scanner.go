package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"MASentinel/internal/collector"
	"MASentinel/internal/model"
)

// Outcome is the terminal state of one timeframe evaluation.
type Outcome int

const (
	OutcomeNoData Outcome = iota
	OutcomeNotDeclining
	OutcomeNoTouches
	OutcomeIncluded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoData:
		return "no-data"
	case OutcomeNotDeclining:
		return "not-declining"
	case OutcomeNoTouches:
		return "no-touches"
	case OutcomeIncluded:
		return "included"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Evaluation records how one symbol fared on one timeframe.
type Evaluation struct {
	Timeframe model.Timeframe
	Outcome   Outcome
	Bars      int
	Touches   []model.Touch
	Err       error
}

// Scanner runs series building, trend classification and touch detection
// for every configured timeframe of a symbol.
type Scanner struct {
	Fetcher    collector.Fetcher
	Names      collector.NameResolver
	Trend      TrendPredicate
	Detector   TouchDetector
	Windows    []int
	Timeframes []model.Timeframe
	Timeout    time.Duration
}

// ScanSymbol returns the symbol's record. Fetch failures and timeouts leave
// the affected timeframe empty.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) model.SymbolRecord {
	rec, _ := s.Inspect(ctx, symbol)
	return rec
}

// Inspect is ScanSymbol plus the per-timeframe evaluations.
func (s *Scanner) Inspect(ctx context.Context, symbol string) (model.SymbolRecord, []Evaluation) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	rec := model.SymbolRecord{Symbol: symbol, Name: symbol}
	evals := make([]Evaluation, 0, len(s.Timeframes))
	for _, tf := range s.Timeframes {
		ev := s.Evaluate(ctx, symbol, tf)
		if ev.Outcome == OutcomeNoData {
			log.Printf("[WARN] %s %s skipped: %v", symbol, tf, ev.Err)
		}
		if ev.Outcome == OutcomeIncluded {
			rec.SetTouches(tf, ev.Touches)
		}
		evals = append(evals, ev)
	}

	if rec.HasTouches() && s.Names != nil {
		if name := s.Names.ResolveName(ctx, symbol); name != "" {
			rec.Name = name
		}
	}
	return rec, evals
}

// Evaluate runs one timeframe. Touches are only looked for on declining series.
func (s *Scanner) Evaluate(ctx context.Context, symbol string, tf model.Timeframe) Evaluation {
	ev := Evaluation{Timeframe: tf}

	bars, err := s.Fetcher.FetchBars(ctx, symbol, tf)
	if err != nil {
		ev.Err = fmt.Errorf("%w: fetch %s %s: %w", ErrDataUnavailable, symbol, tf, err)
		return ev
	}
	series, err := BuildSeries(symbol, tf, bars, s.Windows)
	if err != nil {
		ev.Err = err
		return ev
	}
	ev.Bars = series.Len()

	if !s.Trend.Declining(series) {
		ev.Outcome = OutcomeNotDeclining
		return ev
	}
	ev.Touches = s.Detector.Detect(series)
	if len(ev.Touches) == 0 {
		ev.Outcome = OutcomeNoTouches
		return ev
	}
	ev.Outcome = OutcomeIncluded
	return ev
}

// IsDataUnavailable reports whether err came from a missing or failed fetch.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrDataUnavailable)
}
