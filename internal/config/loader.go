package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TICKBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TICKBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venue ──
	setStr(&cfg.Venue.BaseURL, "TICKBOT_VENUE_BASE_URL")
	setStr(&cfg.Venue.APIKey, "TICKBOT_VENUE_API_KEY")
	setStr(&cfg.Venue.EncryptedKeyPath, "TICKBOT_VENUE_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Venue.KeyPassword, "TICKBOT_VENUE_KEY_PASSWORD")
	setDuration(&cfg.Venue.Timeout, "TICKBOT_VENUE_TIMEOUT")

	// ── Fees ──
	setFloat64(&cfg.Fees.MainTaker, "TICKBOT_FEES_MAIN_TAKER")
	setFloat64(&cfg.Fees.AltTaker, "TICKBOT_FEES_ALT_TAKER")
	setFloat64(&cfg.Fees.MainMaker, "TICKBOT_FEES_MAIN_MAKER")
	setFloat64(&cfg.Fees.AltMaker, "TICKBOT_FEES_ALT_MAKER")
	setFloat64(&cfg.Fees.Buffer, "TICKBOT_FEES_BUFFER")

	// ── Strategy ──
	setStringSlice(&cfg.Strategy.Order, "TICKBOT_STRATEGY_ORDER")
	setBool(&cfg.Strategy.CrossVenueArb.Enabled, "TICKBOT_STRATEGY_CROSS_VENUE_ARB_ENABLED")
	setInt64(&cfg.Strategy.CrossVenueArb.MaxClip, "TICKBOT_STRATEGY_CROSS_VENUE_ARB_MAX_CLIP")
	setBool(&cfg.Strategy.IndexArb.Enabled, "TICKBOT_STRATEGY_INDEX_ARB_ENABLED")
	setStr(&cfg.Strategy.IndexArb.Index, "TICKBOT_STRATEGY_INDEX_ARB_INDEX")
	setInt64(&cfg.Strategy.IndexArb.MaxClip, "TICKBOT_STRATEGY_INDEX_ARB_MAX_CLIP")
	setBool(&cfg.Strategy.NewsShock.Enabled, "TICKBOT_STRATEGY_NEWS_SHOCK_ENABLED")
	setInt64(&cfg.Strategy.NewsShock.Clip, "TICKBOT_STRATEGY_NEWS_SHOCK_CLIP")
	setBool(&cfg.Strategy.TrendMomentum.Enabled, "TICKBOT_STRATEGY_TREND_MOMENTUM_ENABLED")
	setStringSlice(&cfg.Strategy.TrendMomentum.Symbols, "TICKBOT_STRATEGY_TREND_MOMENTUM_SYMBOLS")
	setInt64(&cfg.Strategy.TrendMomentum.Clip, "TICKBOT_STRATEGY_TREND_MOMENTUM_CLIP")
	setInt64(&cfg.Strategy.TrendMomentum.Cooldown, "TICKBOT_STRATEGY_TREND_MOMENTUM_COOLDOWN")
	setBool(&cfg.Strategy.IndexRatio.Enabled, "TICKBOT_STRATEGY_INDEX_RATIO_ENABLED")

	// ── Engine ──
	setDuration(&cfg.Engine.PollInterval, "TICKBOT_ENGINE_POLL_INTERVAL")
	setInt(&cfg.Engine.RecentLimit, "TICKBOT_ENGINE_RECENT_LIMIT")
	setInt(&cfg.Engine.HistoryCap, "TICKBOT_ENGINE_HISTORY_CAP")
	setDuration(&cfg.Engine.CleanupTimeout, "TICKBOT_ENGINE_CLEANUP_TIMEOUT")
	setBool(&cfg.Engine.LimitGuard, "TICKBOT_ENGINE_LIMIT_GUARD")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TICKBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TICKBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TICKBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TICKBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TICKBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TICKBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TICKBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.FaultStream, "TICKBOT_REDIS_FAULT_STREAM")
	setInt64(&cfg.Redis.FaultStreamMax, "TICKBOT_REDIS_FAULT_STREAM_MAX_LEN")
	setStr(&cfg.Redis.ReportChannel, "TICKBOT_REDIS_REPORT_CHANNEL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TICKBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TICKBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "TICKBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TICKBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TICKBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TICKBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TICKBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TICKBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TICKBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TICKBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TICKBOT_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TICKBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TICKBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TICKBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "TICKBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TICKBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TICKBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TICKBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TICKBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "TICKBOT_S3_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TICKBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TICKBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "TICKBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TICKBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TICKBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TICKBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TICKBOT_NOTIFY_EVENTS")

	// ── Fault log / snapshot ──
	setStr(&cfg.FaultLog.Path, "TICKBOT_FAULT_LOG_PATH")
	setBool(&cfg.Snapshot.Enabled, "TICKBOT_SNAPSHOT_ENABLED")
	setStr(&cfg.Snapshot.Path, "TICKBOT_SNAPSHOT_PATH")
	setBool(&cfg.Snapshot.Upload, "TICKBOT_SNAPSHOT_UPLOAD")

	// ── Top-level ──
	setStr(&cfg.Mode, "TICKBOT_MODE")
	setStr(&cfg.LogLevel, "TICKBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
