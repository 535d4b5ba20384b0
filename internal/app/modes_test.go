package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/app"
	"github.com/arenabets/arenasync/internal/config"
	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/mock"
)

func testDeps() (*app.Dependencies, *mock.Fetcher) {
	fetcher := mock.NewFetcher()
	deps := &app.Dependencies{
		Markets:     mock.NewMarketStore(),
		Claims:      mock.NewClaimStore(),
		Balances:    mock.NewBalanceStore(),
		Leaderboard: mock.NewLeaderboardStore(),
		Fetcher:     fetcher,
		Registry:    &mock.Registry{Addresses: map[string]string{}},
	}
	return deps, fetcher
}

func testApp(cfg config.Config) *app.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.New(&cfg, logger)
}

func TestServeModeRejectsNothingToRun(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.Sync.SweepInterval.Duration = 0
	a := testApp(cfg)
	deps, _ := testDeps()

	err := a.ServeMode(context.Background(), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to run")
}

func TestServeModeServerDisabledRunsSweeperOnly(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.Sync.SweepInterval.Duration = time.Hour
	a := testApp(cfg)
	deps, fetcher := testDeps()

	addr := "0x1111111111111111111111111111111111111111"
	require.NoError(t, deps.Markets.Upsert(context.Background(), domain.MarketSnapshot{Address: addr}))
	fetcher.Markets[addr] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "1", PoolB: "1"}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, a.ServeMode(ctx, deps))
	assert.GreaterOrEqual(t, fetcher.CallCount("market:"), 1, "the sweeper ran without the http server")
}
