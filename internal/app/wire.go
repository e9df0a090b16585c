package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/guardiana/sentinel/internal/blob/s3"
	"github.com/guardiana/sentinel/internal/cache/redis"
	"github.com/guardiana/sentinel/internal/config"
	"github.com/guardiana/sentinel/internal/domain"
	"github.com/guardiana/sentinel/internal/notify"
	"github.com/guardiana/sentinel/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores (nil in sim mode).
	AlertStore   domain.AlertStore
	PatternStore domain.PatternStore
	TradeStore   domain.TradeStore

	// Caches.
	BookCache    domain.BookCache
	TapeCache    domain.TapeCache
	HistoryCache domain.HistoryCache
	MetricsCache domain.MetricsCache
	RateLimiter  domain.RateLimiter
	SignalBus    domain.SignalBus

	// Connectivity handles for health checks.
	Redis    *redis.Client
	Postgres *postgres.Client

	// Cold storage (nil unless archiving is enabled).
	Archiver *s3blob.Archiver

	// Notifications.
	Notifier *notify.Notifier
}

// needsPostgres reports whether the mode requires a database connection.
// Headless sim mode runs against Redis alone.
func needsPostgres(mode string) bool {
	return strings.ToLower(mode) == "serve"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to call on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// PostgreSQL, for modes that persist.
	if needsPostgres(cfg.Mode) {
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

		pool := pgClient.Pool()
		deps.Postgres = pgClient
		deps.AlertStore = postgres.NewAlertStore(pool)
		deps.PatternStore = postgres.NewPatternStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
	}

	// Redis, always.
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

	state := redis.NewStateCache(redisClient)
	deps.Redis = redisClient
	deps.BookCache = state
	deps.TapeCache = state
	deps.HistoryCache = state
	deps.MetricsCache = state
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// S3 cold storage, only when archiving is enabled and stores exist.
	if cfg.Archive.Enabled && deps.AlertStore != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(
			s3blob.Config{
				Interval:  cfg.Archive.Interval.Duration,
				Retention: time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour,
			},
			s3blob.NewWriter(s3Client),
			deps.AlertStore,
			deps.PatternStore,
			deps.TradeStore,
			logger,
		)
	}

	// Notifications.
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
