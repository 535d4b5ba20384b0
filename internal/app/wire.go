package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/arenabets/arenasync/internal/blob/s3"
	"github.com/arenabets/arenasync/internal/cache/redis"
	"github.com/arenabets/arenasync/internal/config"
	"github.com/arenabets/arenasync/internal/crypto"
	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/platform/chain"
	"github.com/arenabets/arenasync/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	Markets     domain.MarketStore
	Claims      domain.ClaimStore
	Balances    domain.BalanceStore
	Leaderboard domain.LeaderboardStore

	// Chain access
	Fetcher  domain.StateFetcher
	Registry domain.ContractRegistry
	Mutator  domain.MarketMutator // nil without an operator key

	// Redis-backed pieces; nil when no Redis address is configured.
	Cache   domain.SnapshotCache
	Limiter domain.RateLimiter
	Locks   domain.LockManager
	Bus     domain.SignalBus

	// Object storage; nil when S3 is disabled.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader

	// Webhook signature verification; nil when no passphrase is set.
	Verifier *crypto.WebhookVerifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// PostgreSQL.
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
	deps.Markets = postgres.NewMarketStore(pool)
	deps.Claims = postgres.NewClaimStore(pool)
	deps.Balances = postgres.NewBalanceStore(pool)
	deps.Leaderboard = postgres.NewLeaderboardStore(pool)

	// Chain RPC.
	chainClient, err := chain.New(ctx, chain.ClientConfig{
		RPCURL:  cfg.Chain.RPCURL,
		ChainID: cfg.Chain.ChainID,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)

	deps.Fetcher = chain.NewFetcher(chainClient, logger)
	registry, err := chain.NewRegistry(chainClient, cfg.Chain.RegistryAddress, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: registry: %w", err)
	}
	deps.Registry = registry

	if cfg.Chain.OperatorKey != "" {
		writer, err := chain.NewWriter(chainClient, cfg.Chain.OperatorKey, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain writer: %w", err)
		}
		deps.Mutator = writer
	}

	// Redis.
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewSnapshotCache(redisClient, cfg.Sync.Freshness.Duration)
		deps.Limiter = redis.NewRateLimiter(redisClient)
		deps.Locks = redis.NewLockManager(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient)
	}

	// Object storage.
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
	}

	if cfg.Leaderboard.WebhookPassphrase != "" {
		deps.Verifier = crypto.NewWebhookVerifier(
			cfg.Leaderboard.WebhookPassphrase,
			cfg.Leaderboard.WebhookSalt,
		)
	}

	return deps, cleanup, nil
}
