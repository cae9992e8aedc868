package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MASentinel/internal/model"
)

// RestFetcher implements Fetcher against a generic bars REST API.
type RestFetcher struct {
	BaseURL     string
	APIKey      string
	Client      *http.Client
	DailyLimit  int
	WeeklyLimit int
}

// NewRestFetcher creates a new fetcher with optional proxy support.
func NewRestFetcher(baseURL, apiKey, proxyURL string) *RestFetcher {
	return &RestFetcher{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Client:      newHTTPClient(proxyURL, 30*time.Second),
		DailyLimit:  800,
		WeeklyLimit: 520,
	}
}

func (f *RestFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RestFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.OHLCV, error) {
	if tf == model.Weekly {
		return f.fetchWeekly(ctx, symbol)
	}
	return f.fetchBars(ctx, f.endpoint("daily", symbol, f.DailyLimit))
}

func (f *RestFetcher) endpoint(kind, symbol string, limit int) string {
	return fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d", f.BaseURL, kind, url.QueryEscape(symbol), limit)
}

func (f *RestFetcher) fetchWeekly(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	// Try weekly endpoint first; if the API only provides daily, aggregate internally.
	bars, err := f.fetchBars(ctx, f.endpoint("weekly", symbol, f.WeeklyLimit))
	if err == nil {
		return bars, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Printf("[WARN] rest: weekly bars for %s unavailable (%v), aggregating daily", symbol, err)
	dailyBars, dailyErr := f.fetchBars(ctx, f.endpoint("daily", symbol, f.WeeklyLimit*5))
	if dailyErr != nil {
		return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
	}
	return AggregateDailyToWeekly(dailyBars), nil
}

func (f *RestFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, rb := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// AggregateDailyToWeekly converts chronological daily bars into ISO-week bars.
func AggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.OHLCV
	week := daily[0]
	wy, ww := week.Time.ISOWeek()

	for _, d := range daily[1:] {
		y, w := d.Time.ISOWeek()
		if y != wy || w != ww {
			weekly = append(weekly, week)
			week = d
			wy, ww = y, w
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
