package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/tickbot/internal/blob/s3"
	"github.com/alanyoungcy/tickbot/internal/cache/redis"
	"github.com/alanyoungcy/tickbot/internal/config"
	"github.com/alanyoungcy/tickbot/internal/crypto"
	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/faultlog"
	"github.com/alanyoungcy/tickbot/internal/metrics"
	"github.com/alanyoungcy/tickbot/internal/notify"
	"github.com/alanyoungcy/tickbot/internal/platform/rit"
	"github.com/alanyoungcy/tickbot/internal/store/postgres"
)

// Dependencies bundles everything the loop needs. It is constructed by Wire
// and torn down by the returned cleanup function. Optional backends that are
// disabled in config stay nil.
type Dependencies struct {
	// Venue
	Venue domain.Venue

	// Persistence
	Journal    domain.OrderJournal
	FaultLogs  faultlog.Multi
	BlobWriter domain.BlobWriter

	// Messaging
	SignalBus domain.SignalBus

	Metrics  *metrics.Metrics
	Notifier *notify.Notifier
}

// Wire constructs the concrete dependencies from cfg and returns them together
// with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Metrics: metrics.New()}

	// --- Venue ---
	apiKey, err := crypto.LoadKey(crypto.KeyConfig{
		APIKey:           cfg.Venue.APIKey,
		EncryptedKeyPath: cfg.Venue.EncryptedKeyPath,
		KeyPassword:      cfg.Venue.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: venue key: %w", err)
	}
	deps.Venue = rit.NewClient(cfg.Venue.BaseURL, apiKey, cfg.Venue.Timeout.Duration)

	// --- Fault log ---
	fileLog, err := faultlog.Open(cfg.FaultLog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: fault log: %w", err)
	}
	closers = append(closers, func() {
		if err := fileLog.Close(); err != nil {
			logger.Warn("fault log close failed", slog.String("error", err.Error()))
		}
	})
	deps.FaultLogs = faultlog.Multi{fileLog}

	// --- PostgreSQL order journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Journal = postgres.NewOrderJournal(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.FaultStreamMax)
		deps.FaultLogs = append(deps.FaultLogs, redis.NewFaultStream(deps.SignalBus, cfg.Redis.FaultStream))
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
