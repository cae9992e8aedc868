package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"MASentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
// An empty slice with a nil error means the provider has no bars.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe) ([]model.OHLCV, error)
	Name() string
}

// NameResolver maps a ticker to a display name. Implementations fall back
// to the symbol itself on failure.
type NameResolver interface {
	ResolveName(ctx context.Context, symbol string) string
}

// SymbolNames is a NameResolver that always echoes the symbol.
type SymbolNames struct{}

func (SymbolNames) ResolveName(_ context.Context, symbol string) string { return symbol }

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
