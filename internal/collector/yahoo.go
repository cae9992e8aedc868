package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MASentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

var errNoChartData = errors.New("yahoo: no data returned")

// YahooFetcher implements Fetcher and NameResolver using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client      *http.Client
	BaseURL     string
	SymbolMap   map[string]string // maps internal symbol to Yahoo ticker
	DailyRange  string
	WeeklyRange string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client:      newHTTPClient(proxyURL, 30*time.Second),
		BaseURL:     yahooBaseURL,
		SymbolMap:   map[string]string{"SPX500": "^GSPC", "SPX": "^GSPC"},
		DailyRange:  "3y",
		WeeklyRange: "10y",
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(values []interface{}, i int) float64 {
	if i >= len(values) {
		return 0
	}
	return toFloat(values[i])
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) (*yahooChart, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, errNoChartData
	}
	return &chart, nil
}

func (f *YahooFetcher) fetchBars(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	chart, err := f.fetchChart(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, errNoChartData
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := at(quote.Open, i)
		h := at(quote.High, i)
		l := at(quote.Low, i)
		c := at(quote.Close, i)
		if c == 0 {
			continue // null bars (holidays, halted sessions)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, errNoChartData
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// FetchBars returns daily bars over DailyRange or weekly bars over
// WeeklyRange. Symbols listed for less than the range are retried with
// range=max.
func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.OHLCV, error) {
	interval, rng := "1d", f.DailyRange
	if tf == model.Weekly {
		interval, rng = "1wk", f.WeeklyRange
	}
	bars, err := f.fetchBars(ctx, symbol, interval, rng)
	if errors.Is(err, errNoChartData) && rng != "max" {
		log.Printf("[INFO] yahoo: %s %s empty for range %s, retrying with max", symbol, interval, rng)
		return f.fetchBars(ctx, symbol, interval, "max")
	}
	return bars, err
}

// ResolveName returns the long name from chart metadata, then the short
// name, then the symbol.
func (f *YahooFetcher) ResolveName(ctx context.Context, symbol string) string {
	chart, err := f.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		log.Printf("[WARN] yahoo: resolve name for %s: %v", symbol, err)
		return symbol
	}
	meta := chart.Chart.Result[0].Meta
	if meta.LongName != "" {
		return meta.LongName
	}
	if meta.ShortName != "" {
		return meta.ShortName
	}
	return symbol
}
