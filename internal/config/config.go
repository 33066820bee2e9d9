// Package config defines the top-level configuration for tickbot and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TICKBOT_* environment variables.
type Config struct {
	Venue    VenueConfig    `toml:"venue"`
	Fees     FeesConfig     `toml:"fees"`
	Strategy StrategyConfig `toml:"strategy"`
	Engine   EngineConfig   `toml:"engine"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	FaultLog FaultLogConfig `toml:"fault_log"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// VenueConfig holds the RIT client API endpoint and credentials. The API key
// is either given directly or read from an encrypted key file.
type VenueConfig struct {
	BaseURL          string   `toml:"base_url"`
	APIKey           string   `toml:"api_key"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	Timeout          duration `toml:"timeout"`
}

// FeesConfig holds per-venue commissions per share and the safety buffer.
type FeesConfig struct {
	MainTaker float64 `toml:"main_taker"`
	AltTaker  float64 `toml:"alt_taker"`
	MainMaker float64 `toml:"main_maker"`
	AltMaker  float64 `toml:"alt_maker"`
	Buffer    float64 `toml:"buffer"`
}

// PairConfig is one underlying with its main and alternate listings.
type PairConfig struct {
	Underlying string `toml:"underlying"`
	Main       string `toml:"main"`
	Alt        string `toml:"alt"`
}

// StrategyConfig holds the run order, the shared pair table and
// per-strategy parameters.
type StrategyConfig struct {
	// Order fixes the run order. Empty means the default order. Disabled
	// strategies are skipped either way.
	Order []string     `toml:"order"`
	Pairs []PairConfig `toml:"pairs"`

	CrossVenueArb CrossVenueArbConfig `toml:"cross_venue_arb"`
	IndexArb      IndexArbConfig      `toml:"index_arb"`
	NewsShock     NewsShockConfig     `toml:"news_shock"`
	TrendMomentum TrendMomentumConfig `toml:"trend_momentum"`
	IndexRatio    IndexRatioConfig    `toml:"index_ratio"`
}

// CrossVenueArbConfig holds config for cross_venue_arb strategy.
type CrossVenueArbConfig struct {
	Enabled bool  `toml:"enabled"`
	MaxClip int64 `toml:"max_clip"`
}

// IndexArbConfig holds config for index_arb strategy.
type IndexArbConfig struct {
	Enabled bool   `toml:"enabled"`
	Index   string `toml:"index"`
	MaxClip int64  `toml:"max_clip"`
}

// NewsShockConfig holds config for news_shock strategy.
type NewsShockConfig struct {
	Enabled         bool  `toml:"enabled"`
	Clip            int64 `toml:"clip"`
	NewsLimit       int   `toml:"news_limit"`
	FreshnessWindow int64 `toml:"freshness_window"`
	ReactFreshness  int64 `toml:"react_freshness"`
	ReversalTick    int64 `toml:"reversal_tick"`
}

// TrendMomentumConfig holds config for trend_momentum strategy.
type TrendMomentumConfig struct {
	Enabled     bool     `toml:"enabled"`
	Symbols     []string `toml:"symbols"`
	ShortWindow int      `toml:"short_window"`
	LongWindow  int      `toml:"long_window"`
	Threshold   int      `toml:"threshold"`
	Clip        int64    `toml:"clip"`

	// Cooldown is how many ticks a symbol/horizon/side signal stays quiet
	// after firing. Zero uses short_window.
	Cooldown int64 `toml:"cooldown"`
}

// IndexRatioConfig holds config for index_ratio recorder.
type IndexRatioConfig struct {
	Enabled     bool   `toml:"enabled"`
	Numerator   string `toml:"numerator"`
	Denominator string `toml:"denominator"`
}

// EngineConfig tunes the strategy loop.
type EngineConfig struct {
	PollInterval   duration `toml:"poll_interval"`
	RecentLimit    int      `toml:"recent_limit"`
	HistoryCap     int      `toml:"history_cap"`
	CleanupTimeout duration `toml:"cleanup_timeout"`
	LimitGuard     bool     `toml:"limit_guard"`
}

// RedisConfig holds Redis connection parameters and the keys tickbot
// publishes to.
type RedisConfig struct {
	Enabled        bool   `toml:"enabled"`
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	PoolSize       int    `toml:"pool_size"`
	MaxRetries     int    `toml:"max_retries"`
	TLSEnabled     bool   `toml:"tls_enabled"`
	FaultStream    string `toml:"fault_stream"`
	FaultStreamMax int64  `toml:"fault_stream_max_len"`
	ReportChannel  string `toml:"report_channel"`
}

// PostgresConfig holds PostgreSQL connection parameters for the order
// journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "50ms", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds monitoring HTTP server parameters.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	APIKey  string `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// FaultLogConfig locates the persistent error log.
type FaultLogConfig struct {
	Path string `toml:"path"`
}

// SnapshotConfig controls the trader-state snapshot written at shutdown.
type SnapshotConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	Upload  bool   `toml:"upload"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			BaseURL: "http://localhost:9999",
			Timeout: duration{5 * time.Second},
		},
		Fees: FeesConfig{
			MainTaker: 0.02,
			AltTaker:  0.02,
			Buffer:    0.01,
		},
		Strategy: StrategyConfig{
			Pairs: []PairConfig{
				{Underlying: "WMT", Main: "WMT-M", Alt: "WMT-A"},
				{Underlying: "MMM", Main: "MMM-M", Alt: "MMM-A"},
				{Underlying: "CAT", Main: "CAT-M", Alt: "CAT-A"},
			},
			CrossVenueArb: CrossVenueArbConfig{
				Enabled: true,
				MaxClip: 50_000,
			},
			IndexArb: IndexArbConfig{
				Enabled: true,
				Index:   "ETF",
				MaxClip: 50_000,
			},
			NewsShock: NewsShockConfig{
				Enabled:         true,
				Clip:            10_000,
				NewsLimit:       20,
				FreshnessWindow: 2,
				ReactFreshness:  1,
				ReversalTick:    2,
			},
			TrendMomentum: TrendMomentumConfig{
				Enabled:     false,
				Symbols:     []string{"WMT-M", "MMM-M", "CAT-M"},
				ShortWindow: 20,
				LongWindow:  100,
				Threshold:   4,
				Clip:        1_000,
				Cooldown:    20,
			},
			IndexRatio: IndexRatioConfig{
				Enabled:     true,
				Numerator:   "ES",
				Denominator: "ETF",
			},
		},
		Engine: EngineConfig{
			PollInterval:   duration{50 * time.Millisecond},
			RecentLimit:    500,
			HistoryCap:     10_000,
			CleanupTimeout: duration{30 * time.Second},
			LimitGuard:     true,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Addr:           "localhost:6379",
			DB:             0,
			PoolSize:       10,
			MaxRetries:     3,
			FaultStream:    "stream:faults",
			FaultStreamMax: 10_000,
			ReportChannel:  "ch:tick",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "tickbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tickbot-data",
			ForcePathStyle: true,
			Prefix:         "snapshots/",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"loop_stopped", "fatal"},
		},
		FaultLog: FaultLogConfig{
			Path: "faults.jsonl",
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Path:    "state.json",
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade": true,
	"paper": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// StrategyNames is the default run order.
var StrategyNames = []string{"cross_venue_arb", "index_arb", "news_shock", "trend_momentum", "index_ratio"}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venue
	if c.Venue.BaseURL == "" {
		errs = append(errs, "venue: base_url must not be empty")
	}
	if c.Venue.APIKey == "" && c.Venue.EncryptedKeyPath == "" {
		errs = append(errs, "venue: either api_key or encrypted_key_path must be set")
	}
	if c.Venue.EncryptedKeyPath != "" && c.Venue.KeyPassword == "" {
		errs = append(errs, "venue: key_password is required when encrypted_key_path is set")
	}

	// Fees
	for name, v := range map[string]float64{
		"main_taker": c.Fees.MainTaker,
		"alt_taker":  c.Fees.AltTaker,
		"main_maker": c.Fees.MainMaker,
		"alt_maker":  c.Fees.AltMaker,
		"buffer":     c.Fees.Buffer,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("fees: %s must be >= 0", name))
		}
	}

	// Strategy
	known := make(map[string]bool, len(StrategyNames))
	for _, n := range StrategyNames {
		known[n] = true
	}
	seen := make(map[string]bool, len(c.Strategy.Order))
	for _, n := range c.Strategy.Order {
		if !known[n] {
			errs = append(errs, fmt.Sprintf("strategy: unknown strategy %q in order", n))
		}
		if seen[n] {
			errs = append(errs, fmt.Sprintf("strategy: %q listed twice in order", n))
		}
		seen[n] = true
	}
	for i, p := range c.Strategy.Pairs {
		if p.Main == "" || p.Alt == "" {
			errs = append(errs, fmt.Sprintf("strategy: pairs[%d] needs main and alt", i))
		}
	}
	if c.Strategy.CrossVenueArb.Enabled && c.Strategy.CrossVenueArb.MaxClip < 0 {
		errs = append(errs, "strategy.cross_venue_arb: max_clip must be >= 0")
	}
	if c.Strategy.IndexArb.Enabled && c.Strategy.IndexArb.Index == "" {
		errs = append(errs, "strategy.index_arb: index must not be empty")
	}
	if ns := c.Strategy.NewsShock; ns.Enabled {
		if ns.Clip <= 0 {
			errs = append(errs, "strategy.news_shock: clip must be > 0")
		}
		if ns.ReversalTick > ns.FreshnessWindow {
			errs = append(errs, "strategy.news_shock: reversal_tick must not exceed freshness_window")
		}
	}
	if tm := c.Strategy.TrendMomentum; tm.Enabled {
		if tm.Clip <= 0 {
			errs = append(errs, "strategy.trend_momentum: clip must be > 0")
		}
		if len(tm.Symbols) == 0 {
			errs = append(errs, "strategy.trend_momentum: symbols must not be empty")
		}
		if tm.ShortWindow < 2 || tm.LongWindow < tm.ShortWindow {
			errs = append(errs, "strategy.trend_momentum: need 2 <= short_window <= long_window")
		}
		if tm.Cooldown < 0 {
			errs = append(errs, "strategy.trend_momentum: cooldown must be >= 0")
		}
	}
	if ir := c.Strategy.IndexRatio; ir.Enabled && (ir.Numerator == "" || ir.Denominator == "") {
		errs = append(errs, "strategy.index_ratio: numerator and denominator must be set")
	}

	// Engine
	if c.Engine.PollInterval.Duration <= 0 {
		errs = append(errs, "engine: poll_interval must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}
	if c.Snapshot.Upload && !c.S3.Enabled {
		errs = append(errs, "snapshot: upload requires s3.enabled")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Enabled reports whether the named strategy is switched on.
func (s StrategyConfig) Enabled(name string) bool {
	switch name {
	case "cross_venue_arb":
		return s.CrossVenueArb.Enabled
	case "index_arb":
		return s.IndexArb.Enabled
	case "news_shock":
		return s.NewsShock.Enabled
	case "trend_momentum":
		return s.TrendMomentum.Enabled
	case "index_ratio":
		return s.IndexRatio.Enabled
	}
	return false
}

// RunOrder returns the enabled strategies in run order: the explicit order
// when one is given, otherwise the default order.
func (s StrategyConfig) RunOrder() []string {
	names := s.Order
	if len(names) == 0 {
		names = StrategyNames
	}
	var out []string
	for _, n := range names {
		if s.Enabled(n) {
			out = append(out, n)
		}
	}
	return out
}
