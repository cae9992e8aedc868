package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MASentinel/internal/model"
	"MASentinel/internal/strategy"
	"MASentinel/internal/watchlist"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo or rest
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		BarsTTL       time.Duration `yaml:"bars_ttl"`
		NamesTTL      time.Duration `yaml:"names_ttl"`
	} `yaml:"cache"`
	Watchlist struct {
		Symbols []string `yaml:"symbols"`
		DSN     string   `yaml:"dsn"`
		// Seed copies Symbols into the DSN table on start.
		Seed bool `yaml:"seed"`
	} `yaml:"watchlist"`
	Detection struct {
		Tolerance     float64  `yaml:"tolerance"`
		Windows       []int    `yaml:"windows"`
		TrendMode     string   `yaml:"trend_mode"`
		TrendLookback int      `yaml:"trend_lookback"`
		Timeframes    []string `yaml:"timeframes"`
	} `yaml:"detection"`
	Message struct {
		MaxLength int    `yaml:"max_length"`
		Timezone  string `yaml:"timezone"`
	} `yaml:"message"`
	Scan struct {
		Concurrency   int           `yaml:"concurrency"`
		RequestDelay  time.Duration `yaml:"request_delay"`
		SymbolTimeout time.Duration `yaml:"symbol_timeout"`
	} `yaml:"scan"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
		Exchange string `yaml:"exchange"` // ISO 10383 MIC for the trading calendar
	} `yaml:"schedule"`
	Proxy  string `yaml:"proxy"`
	DryRun bool   `yaml:"dry_run"`
}

// Load reads an optional .env file and the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("MA_TOLERANCE"); v != "" {
		tol, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: MA_TOLERANCE %q: %v", ErrInvalid, v, err)
		}
		c.Detection.Tolerance = tol
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist.Symbols = watchlist.ParseList(v)
	}
	if v := os.Getenv("WATCHLIST_DSN"); v != "" {
		c.Watchlist.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		c.Schedule.ScanCron = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "rest"
		}
	}
	if c.Cache.BarsTTL == 0 {
		c.Cache.BarsTTL = time.Hour
	}
	if c.Cache.NamesTTL == 0 {
		c.Cache.NamesTTL = 24 * time.Hour
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "ma-proximity-alerts"
	}
	if c.Detection.Tolerance == 0 {
		c.Detection.Tolerance = 0.01
	}
	if len(c.Detection.Windows) == 0 {
		c.Detection.Windows = []int{200, 240, 365}
	}
	if c.Detection.TrendMode == "" {
		c.Detection.TrendMode = strategy.TrendMASlope
	}
	if c.Detection.TrendLookback == 0 {
		c.Detection.TrendLookback = 20
	}
	if len(c.Detection.Timeframes) == 0 {
		c.Detection.Timeframes = []string{string(model.Daily), string(model.Weekly)}
	}
	if c.Message.MaxLength == 0 {
		c.Message.MaxLength = 4000
	}
	if c.Message.Timezone == "" {
		c.Message.Timezone = "Asia/Seoul"
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = 4
	}
	if c.Scan.RequestDelay == 0 {
		c.Scan.RequestDelay = 100 * time.Millisecond
	}
	if c.Scan.SymbolTimeout == 0 {
		c.Scan.SymbolTimeout = 45 * time.Second
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.Exchange == "" {
		c.Schedule.Exchange = "xnys"
	}
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	d := c.Detection
	if !(d.Tolerance > 0 && d.Tolerance <= 0.5) {
		return fmt.Errorf("%w: detection.tolerance must be in (0, 0.5], got %v", ErrInvalid, d.Tolerance)
	}
	seen := make(map[int]bool, len(d.Windows))
	for _, w := range d.Windows {
		if w <= 0 {
			return fmt.Errorf("%w: detection.windows must be positive, got %d", ErrInvalid, w)
		}
		if seen[w] {
			return fmt.Errorf("%w: detection.windows has duplicate %d", ErrInvalid, w)
		}
		seen[w] = true
	}
	if d.TrendLookback <= 0 {
		return fmt.Errorf("%w: detection.trend_lookback must be positive", ErrInvalid)
	}
	if _, err := strategy.NewTrendPredicate(d.TrendMode, d.TrendLookback); err != nil {
		return fmt.Errorf("%w: detection.trend_mode: %v", ErrInvalid, err)
	}
	if _, err := c.Timeframes(); err != nil {
		return err
	}
	if c.Message.MaxLength < 256 || c.Message.MaxLength > 4096 {
		return fmt.Errorf("%w: message.max_length must be in [256, 4096], got %d", ErrInvalid, c.Message.MaxLength)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Scan.Concurrency <= 0 {
		return fmt.Errorf("%w: scan.concurrency must be positive", ErrInvalid)
	}
	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("%w: data_source.base_url is required for the rest provider", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.provider %q", ErrInvalid, c.DataSource.Provider)
	}
	if len(c.Watchlist.Symbols) == 0 && c.Watchlist.DSN == "" {
		return fmt.Errorf("%w: watchlist.symbols or watchlist.dsn is required", ErrInvalid)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("%w: telegram.bot_token and telegram.chat_id must be set together", ErrInvalid)
	}
	if !c.DryRun && !c.TelegramEnabled() && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: no notification sink configured (telegram or kafka)", ErrInvalid)
	}
	return nil
}

func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Timeframes parses detection.timeframes, dropping repeats.
func (c *Config) Timeframes() ([]model.Timeframe, error) {
	var out []model.Timeframe
	seen := make(map[model.Timeframe]bool)
	for _, s := range c.Detection.Timeframes {
		tf, ok := model.ParseTimeframe(s)
		if !ok {
			return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalid, s)
		}
		if !seen[tf] {
			seen[tf] = true
			out = append(out, tf)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: detection.timeframes is empty", ErrInvalid)
	}
	return out, nil
}

// Location loads message.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Message.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: message.timezone: %v", ErrInvalid, err)
	}
	return loc, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
