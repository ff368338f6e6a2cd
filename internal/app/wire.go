package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/simbroker/simbroker/internal/blob/s3"
	"github.com/simbroker/simbroker/internal/cache/redis"
	"github.com/simbroker/simbroker/internal/config"
	"github.com/simbroker/simbroker/internal/domain"
	"github.com/simbroker/simbroker/internal/marketdata"
	"github.com/simbroker/simbroker/internal/notify"
	"github.com/simbroker/simbroker/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	StockStore       domain.StockStore
	HistoryStore     domain.HistoryStore
	TeamStore        domain.TeamStore
	HoldingStore     domain.HoldingStore
	TransactionStore domain.TransactionStore
	WatchlistStore   domain.WatchlistStore
	Ledger           domain.Ledger

	// Caches
	PriceCache  domain.PriceCache
	Leaderboard domain.LeaderboardCache
	LockManager domain.LockManager

	// Market data
	ChartProvider *marketdata.Client

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true for modes that require object storage.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
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
	deps.StockStore = postgres.NewStockStore(pool)
	deps.HistoryStore = postgres.NewHistoryStore(pool)
	deps.TeamStore = postgres.NewTeamStore(pool)
	deps.HoldingStore = postgres.NewHoldingStore(pool)
	deps.TransactionStore = postgres.NewTransactionStore(pool)
	deps.WatchlistStore = postgres.NewWatchlistStore(pool)
	deps.Ledger = postgres.NewLedger(pool)

	// --- Redis ---
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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.Leaderboard = redis.NewLeaderboardCache(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Chart provider ---
	if cfg.Provider.BaseURL != "" {
		deps.ChartProvider = marketdata.New(cfg.Provider.BaseURL, cfg.Provider.APIKey)
	}

	// --- S3 blob storage (only when archival is configured) ---
	if needsS3(cfg) {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.TransactionStore)
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
