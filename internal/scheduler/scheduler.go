package scheduler

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"MASentinel/internal/notifier"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the guarded scan on a cron schedule in daemon mode.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   *Runner
	Calendar *TradingCalendar
	Ctx      context.Context
	Now      func() time.Time
}

// NewScheduler creates a Scheduler; cron expressions are evaluated in the
// calendar's time zone and include a seconds field.
func NewScheduler(ctx context.Context, runner *Runner, cal *TradingCalendar) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(cal.Location)),
		Runner:   runner,
		Calendar: cal,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// Register adds the scan task for spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scanTask); err != nil {
		return fmt.Errorf("register scan task %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow runs the scan task immediately, subject to the same calendar and
// guard as a cron tick.
func (s *Scheduler) RunNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	now := s.Now()
	if !s.Calendar.IsTradingDay(now) {
		log.Printf("[INFO] %s is not a trading day, skipping scan", s.Calendar.DateKey(now))
		return
	}
	if _, _, err := s.Runner.Run(s.Ctx, s.Calendar.DateKey(now)); err != nil {
		log.Printf("[ERROR] scheduled scan: %v", err)
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch commandName(command) {
	case "/status":
		last := s.Runner.Last()
		if last == nil {
			return "No scan has completed yet."
		}
		return fmt.Sprintf("<b>Last scan</b> %s\n<pre>%s</pre>",
			html.EscapeString(last.Key), html.EscapeString(notifier.RenderSummary(last.Result)))
	case "/scan":
		key := s.Calendar.DateKey(s.Now())
		report, ran, err := s.Runner.Run(ctx, key)
		switch {
		case err != nil:
			return "Scan failed: " + html.EscapeString(err.Error())
		case !ran:
			return fmt.Sprintf("Scan for %s was already dispatched.", key)
		}
		return fmt.Sprintf("Scan for %s done: %d of %d symbols flagged, %d part(s) sent.",
			key, len(report.Result.Records), report.Result.Scanned, len(report.Parts))
	default:
		return "Available commands:\n/status - last scan summary\n/scan - run today's scan if not yet sent"
	}
}

// commandName returns the lower-cased command word without a @botname suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(name)
}
