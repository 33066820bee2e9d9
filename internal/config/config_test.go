package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Venue.APIKey = "KEY"
	return cfg
}

func TestDefaultsValidateWithKey(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingKey(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key or encrypted_key_path")

	cfg.Venue.EncryptedKeyPath = "key.json"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "live"
	cfg.Fees.Buffer = -1
	cfg.Strategy.Order = []string{"index_arb", "bogus", "index_arb"}
	cfg.Engine.PollInterval = duration{}
	cfg.Snapshot.Upload = true
	cfg.Strategy.TrendMomentum.Enabled = true
	cfg.Strategy.TrendMomentum.Cooldown = -1

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`unknown mode "live"`,
		"fees: buffer must be >= 0",
		`unknown strategy "bogus"`,
		`"index_arb" listed twice`,
		"poll_interval must be > 0",
		"upload requires s3.enabled",
		"cooldown must be >= 0",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestRunOrder(t *testing.T) {
	s := Defaults().Strategy
	assert.Equal(t, []string{"cross_venue_arb", "index_arb", "news_shock", "index_ratio"}, s.RunOrder())

	s.Order = []string{"news_shock", "trend_momentum", "cross_venue_arb"}
	assert.Equal(t, []string{"news_shock", "cross_venue_arb"}, s.RunOrder())

	s.TrendMomentum.Enabled = true
	assert.Equal(t, []string{"news_shock", "trend_momentum", "cross_venue_arb"}, s.RunOrder())
	assert.False(t, s.Enabled("unknown"))
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickbot.toml")
	body := `
mode = "paper"

[venue]
api_key = "from-file"
timeout = "2s"

[fees]
buffer = 0.05

[engine]
poll_interval = "100ms"

[[strategy.pairs]]
underlying = "XOM"
main = "XOM-M"
alt = "XOM-A"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("TICKBOT_VENUE_API_KEY", "from-env")
	t.Setenv("TICKBOT_STRATEGY_TREND_MOMENTUM_SYMBOLS", "A-M, B-M,")
	t.Setenv("TICKBOT_REDIS_FAULT_STREAM_MAX_LEN", "42")
	t.Setenv("TICKBOT_SERVER_PORT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Mode)
	assert.Equal(t, "from-env", cfg.Venue.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Venue.Timeout.Duration)
	assert.Equal(t, 0.05, cfg.Fees.Buffer)
	assert.Equal(t, 0.02, cfg.Fees.MainTaker)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval.Duration)
	assert.Equal(t, []PairConfig{{Underlying: "XOM", Main: "XOM-M", Alt: "XOM-A"}}, cfg.Strategy.Pairs)
	assert.Equal(t, []string{"A-M", "B-M"}, cfg.Strategy.TrendMomentum.Symbols)
	assert.Equal(t, int64(42), cfg.Redis.FaultStreamMax)
	assert.Equal(t, 8000, cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Venue.KeyPassword = "pw"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.S3.SecretKey = "s3"
	cfg.Notify.DiscordWebhookURL = "https://discord/hook"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Venue.APIKey)
	assert.Equal(t, "***", out.Venue.KeyPassword)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.DiscordWebhookURL)
	assert.Empty(t, out.Redis.Password)

	out.Notify.Events[0] = "changed"
	out.Strategy.Pairs[0].Main = "changed"
	assert.Equal(t, "loop_stopped", cfg.Notify.Events[0])
	assert.Equal(t, "WMT-M", cfg.Strategy.Pairs[0].Main)
	assert.Equal(t, "KEY", cfg.Venue.APIKey)
}
