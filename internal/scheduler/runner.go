package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"MASentinel/internal/aggregator"
	"MASentinel/internal/model"
	"MASentinel/internal/notifier"
	"MASentinel/internal/watchlist"
)

// OnceKey is the guard key for a single-shot process run.
const OnceKey = "once"

// BatchScanner scans a watch-list into a ScanResult.
type BatchScanner interface {
	Run(ctx context.Context, symbols []string) *model.ScanResult
}

// PartDispatcher delivers packed message parts.
type PartDispatcher interface {
	Dispatch(ctx context.Context, runID string, parts []model.MessagePart) notifier.DispatchReport
}

// RunReport describes one guarded scan-and-notify run.
type RunReport struct {
	Key      string
	Result   *model.ScanResult
	Parts    []model.MessagePart
	Dispatch notifier.DispatchReport
}

// Runner is the scan, pack and dispatch sequence behind the Guard.
type Runner struct {
	Watchlist  watchlist.Source
	Scanner    BatchScanner
	Packer     *notifier.Packer
	Dispatcher PartDispatcher
	Guard      *Guard

	mu   sync.Mutex
	last *RunReport
}

func NewRunner(src watchlist.Source, scanner BatchScanner, packer *notifier.Packer, dispatcher PartDispatcher) *Runner {
	return &Runner{
		Watchlist:  src,
		Scanner:    scanner,
		Packer:     packer,
		Dispatcher: dispatcher,
		Guard:      NewGuard(),
	}
}

// Run performs the sequence for key unless it already ran. The bool is
// false when the guard skipped the run. A watch-list load failure returns
// the error and leaves key unclaimed.
func (r *Runner) Run(ctx context.Context, key string) (*RunReport, bool, error) {
	var (
		report *RunReport
		runErr error
	)
	ran := r.Guard.Do(key, func() error {
		report, runErr = r.run(ctx, key)
		return runErr
	})
	if !ran {
		log.Printf("[INFO] run %q already dispatched, skipping", key)
		return nil, false, nil
	}
	return report, true, runErr
}

func (r *Runner) run(ctx context.Context, key string) (*RunReport, error) {
	symbols, err := r.Watchlist.LoadSymbols(ctx)
	if err != nil {
		log.Printf("[ERROR] load watchlist: %v", err)
		return nil, fmt.Errorf("load watchlist: %w", err)
	}

	res := r.Scanner.Run(ctx, symbols)
	runAt := res.FinishedAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	parts := r.Packer.Pack(aggregator.Buckets(res), runAt)
	report := &RunReport{
		Key:      key,
		Result:   res,
		Parts:    parts,
		Dispatch: r.Dispatcher.Dispatch(ctx, res.RunID, parts),
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()
	return report, nil
}

// Last returns the most recent completed run, or nil.
func (r *Runner) Last() *RunReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
