package aggregator

import (
	"context"
	"log"
	"strings"
	"time"

	"MASentinel/internal/model"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SymbolScanner produces the record for one symbol. strategy.Scanner
// satisfies it.
type SymbolScanner interface {
	ScanSymbol(ctx context.Context, symbol string) model.SymbolRecord
}

// Aggregator runs a SymbolScanner over a watch-list with at most
// Concurrency symbols in flight. Records come back in watch-list order.
type Aggregator struct {
	Scanner      SymbolScanner
	Concurrency  int
	RequestDelay time.Duration
	Now          func() time.Time
}

// New creates an Aggregator.
func New(scanner SymbolScanner, concurrency int, delay time.Duration) *Aggregator {
	return &Aggregator{Scanner: scanner, Concurrency: concurrency, RequestDelay: delay, Now: time.Now}
}

// Run scans every distinct symbol once. A cancelled ctx stops new symbols
// from starting; the result then holds the symbols that finished.
func (a *Aggregator) Run(ctx context.Context, symbols []string) *model.ScanResult {
	now := a.Now
	if now == nil {
		now = time.Now
	}
	res := &model.ScanResult{RunID: uuid.NewString(), StartedAt: now()}
	symbols = dedupe(symbols)

	records := make([]model.SymbolRecord, len(symbols))
	done := make([]bool, len(symbols))

	limit := a.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && a.RequestDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(a.RequestDelay):
			}
			if ctx.Err() != nil {
				break
			}
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// Each goroutine writes only its own index.
			records[i] = a.Scanner.ScanSymbol(ctx, sym)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i := range symbols {
		if !done[i] {
			continue
		}
		res.Scanned++
		if records[i].HasTouches() {
			res.Records = append(res.Records, records[i])
		}
	}
	res.FinishedAt = now()
	if ctx.Err() != nil {
		log.Printf("[WARN] scan %s cancelled after %d/%d symbols", res.RunID, res.Scanned, len(symbols))
	}
	log.Printf("[INFO] scan %s: %d symbols scanned, %d with touches", res.RunID, res.Scanned, len(res.Records))
	return res
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
