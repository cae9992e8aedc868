package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MASentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu    sync.Mutex
	Data  map[string]map[model.Timeframe][]model.OHLCV
	Errs  map[string]error
	Names map[string]string
	Delay time.Duration
	calls map[string]int
}

// NewMockFetcher creates an empty MockFetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Data:  make(map[string]map[model.Timeframe][]model.OHLCV),
		Errs:  make(map[string]error),
		Names: make(map[string]string),
		calls: make(map[string]int),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

// SetBars registers the bars returned for symbol on tf.
func (m *MockFetcher) SetBars(symbol string, tf model.Timeframe, bars []model.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Data[symbol] == nil {
		m.Data[symbol] = make(map[model.Timeframe][]model.OHLCV)
	}
	m.Data[symbol][tf] = bars
}

func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.calls[symbol]++
	err := m.Errs[symbol]
	bars := m.Data[symbol][tf]
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	if bars == nil {
		return nil, fmt.Errorf("mock: no bars for %s %s", symbol, tf)
	}
	out := make([]model.OHLCV, len(bars))
	copy(out, bars)
	return out, nil
}

func (m *MockFetcher) ResolveName(_ context.Context, symbol string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name, ok := m.Names[symbol]; ok {
		return name
	}
	return symbol
}

// Calls returns how many FetchBars calls symbol received.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// BarsFromCloses builds a daily-spaced bar series ending on a fixed date.
func BarsFromCloses(closes []float64) []model.OHLCV {
	count := len(closes)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, count)
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   c * 0.999,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}

// GenerateMockBars returns count bars drifting linearly around basePrice.
// A negative step produces a declining series.
func GenerateMockBars(basePrice, step float64, count int) []model.OHLCV {
	closes := make([]float64, count)
	for i := 0; i < count; i++ {
		closes[i] = basePrice * (1 + float64(i-count/2)*step)
	}
	return BarsFromCloses(closes)
}
