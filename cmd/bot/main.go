package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"MASentinel/internal/aggregator"
	"MASentinel/internal/collector"
	"MASentinel/internal/config"
	"MASentinel/internal/notifier"
	"MASentinel/internal/scheduler"
	"MASentinel/internal/strategy"
	"MASentinel/internal/watchlist"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cfgPath := flag.String("config", defaultPath, "path to the YAML config")
	daemon := flag.Bool("daemon", false, "run on the cron schedule and answer chat commands")
	dryRun := flag.Bool("dry-run", false, "print alert parts to stdout instead of sending them")
	summary := flag.Bool("summary", false, "print a summary table after a single run")
	flag.Parse()

	log.Println("[INFO] MASentinel starting...")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	cfg.DryRun = cfg.DryRun || *dryRun
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	loc, _ := cfg.Location()
	timeframes, _ := cfg.Timeframes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data
	var (
		fetcher collector.Fetcher
		names   collector.NameResolver
	)
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRestFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
		names = collector.SymbolNames{}
	default:
		yf := collector.NewYahooFetcher(cfg.Proxy)
		fetcher, names = yf, yf
	}
	if cfg.Cache.RedisAddr != "" {
		store, err := collector.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Printf("[WARN] redis cache unavailable, continuing without cache: %v", err)
		} else {
			defer store.Close()
			fetcher = &collector.CachedFetcher{Next: fetcher, Store: store, TTL: cfg.Cache.BarsTTL}
			names = &collector.CachedNames{Next: names, Store: store, TTL: cfg.Cache.NamesTTL}
		}
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Detection
	trend, err := strategy.NewTrendPredicate(cfg.Detection.TrendMode, cfg.Detection.TrendLookback)
	if err != nil {
		log.Fatalf("[FATAL] trend predicate: %v", err)
	}
	scanner := &strategy.Scanner{
		Fetcher:    fetcher,
		Names:      names,
		Trend:      trend,
		Detector:   strategy.TouchDetector{Tolerance: cfg.Detection.Tolerance, Windows: cfg.Detection.Windows},
		Windows:    cfg.Detection.Windows,
		Timeframes: timeframes,
		Timeout:    cfg.Scan.SymbolTimeout,
	}
	agg := aggregator.New(scanner, cfg.Scan.Concurrency, cfg.Scan.RequestDelay)

	// Watch-list
	var src watchlist.Source = watchlist.NewStaticSource(cfg.Watchlist.Symbols)
	if cfg.Watchlist.DSN != "" {
		sqlSrc, err := watchlist.Open(ctx, cfg.Watchlist.DSN)
		if err != nil {
			log.Fatalf("[FATAL] open watchlist: %v", err)
		}
		defer sqlSrc.Close()
		if cfg.Watchlist.Seed && len(cfg.Watchlist.Symbols) > 0 {
			if err := sqlSrc.Seed(ctx, cfg.Watchlist.Symbols); err != nil {
				log.Fatalf("[FATAL] seed watchlist: %v", err)
			}
		}
		src = sqlSrc
	}

	// Sinks
	var (
		sinks []notifier.Sink
		tn    *notifier.TelegramNotifier
	)
	if cfg.DryRun {
		sinks = append(sinks, &notifier.StdoutSink{W: os.Stdout})
	} else {
		if cfg.TelegramEnabled() {
			tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
			sinks = append(sinks, tn)
		}
		if len(cfg.Kafka.Brokers) > 0 {
			ks := notifier.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer ks.Close()
			sinks = append(sinks, ks)
		}
	}

	runner := scheduler.NewRunner(src, agg,
		notifier.NewPacker(cfg.Message.MaxLength, loc),
		notifier.NewDispatcher(sinks...))

	if !*daemon {
		report, _, err := runner.Run(ctx, scheduler.OnceKey)
		if err != nil {
			log.Fatalf("[FATAL] scan: %v", err)
		}
		if *summary {
			fmt.Println(notifier.RenderSummary(report.Result))
		}
		if !report.Dispatch.OK() {
			log.Printf("[ERROR] %d delivery failure(s)", len(report.Dispatch.Failures))
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(ctx, runner, scheduler.NewTradingCalendar(cfg.Schedule.Exchange, nil))
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		log.Fatalf("[FATAL] register cron task: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, scanning now")
		go sched.RunNow()
	}

	log.Println("[INFO] MASentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] MASentinel stopped")
}
