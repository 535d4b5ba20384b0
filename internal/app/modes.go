package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/pipeline"
	"github.com/arenabets/arenasync/internal/server"
	"github.com/arenabets/arenasync/internal/server/handler"
	"github.com/arenabets/arenasync/internal/server/ws"
	"github.com/arenabets/arenasync/internal/service"
	"github.com/arenabets/arenasync/internal/syncer"
)

const shutdownTimeout = 15 * time.Second

// services bundles the orchestrator and the service layer shared by all
// operating modes.
type services struct {
	orch    *syncer.Orchestrator
	batches *batch.Manager
	markets *service.MarketService
	imports *service.ImportService
	boards  *service.LeaderboardService
}

func (a *App) buildServices(deps *Dependencies) *services {
	orch := syncer.New(syncer.Config{
		Fetcher:        deps.Fetcher,
		Markets:        deps.Markets,
		Claims:         deps.Claims,
		Balances:       deps.Balances,
		Cache:          deps.Cache,
		Registry:       deps.Registry,
		Bus:            deps.Bus,
		Policy:         syncer.NewFreshnessPolicy(a.cfg.Sync.Freshness.Duration),
		CacheEnabled:   a.cfg.Sync.CacheEnabled,
		StakeTokenName: a.cfg.Chain.StakeTokenName,
	}, a.logger)

	batches := batch.NewManager(deps.Markets, deps.Leaderboard, a.logger)

	seed := make([]service.SeedEntry, 0, len(a.cfg.Leaderboard.Seed))
	for _, s := range a.cfg.Leaderboard.Seed {
		seed = append(seed, service.SeedEntry{Name: s.Name, LogoURL: s.LogoURL})
	}

	return &services{
		orch:    orch,
		batches: batches,
		markets: service.NewMarketService(orch, deps.Markets, batches, deps.Mutator, a.logger),
		imports: service.NewImportService(deps.Fetcher, deps.Markets, batches, deps.BlobReader, a.logger),
		boards:  service.NewLeaderboardService(deps.Leaderboard, batches, seed, a.logger),
	}
}

// ServeMode runs the HTTP API, the WebSocket hub, and the periodic sweeper
// until the context is cancelled. With server.enabled off only the sweeper
// runs, so an instance can be deployed as a pure background worker.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")
	svcs := a.buildServices(deps)

	if !a.cfg.Server.Enabled && a.cfg.Sync.SweepInterval.Duration <= 0 {
		return fmt.Errorf("app: serve mode has nothing to run: server disabled and sweep interval is 0")
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		var hub *ws.Hub
		if deps.Bus != nil {
			hub = ws.NewHub(deps.Bus, syncer.RefreshChannel, a.logger)
		}

		handlers := server.Handlers{
			Health:      handler.NewHealthHandler(a.logger),
			Markets:     handler.NewMarketHandler(svcs.markets, a.logger),
			Claims:      handler.NewClaimHandler(svcs.orch, a.logger),
			Balances:    handler.NewBalanceHandler(svcs.orch, a.logger),
			Leaderboard: newLeaderboardHandler(svcs.boards, deps, a.logger),
			Admin:       handler.NewAdminHandler(svcs.orch, svcs.imports, svcs.boards, svcs.batches, a.logger),
		}

		srv := server.New(server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			APIKey:          a.cfg.Server.APIKey,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		}, handlers, hub, deps.Limiter, a.logger)

		g.Go(func() error {
			err := srv.Start()
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return err
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if hub != nil {
			g.Go(func() error {
				err := hub.Run(ctx)
				if ctx.Err() != nil {
					return nil // clean shutdown
				}
				return fmt.Errorf("websocket hub: %w", err)
			})
		}
	} else {
		a.logger.InfoContext(ctx, "http server disabled, running background sweeper only")
	}

	if a.cfg.Sync.SweepInterval.Duration > 0 {
		sweeper := pipeline.NewSweeper(
			svcs.orch,
			deps.Locks,
			pipeline.NewReportArchiver(deps.BlobWriter, a.logger),
			a.cfg.Sync.SweepInterval.Duration,
			a.logger,
		)
		g.Go(func() error {
			err := sweeper.RunLoop(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("sweeper: %w", err)
		})
	}

	return g.Wait()
}

// newLeaderboardHandler keeps the nil-verifier wiring in one place so the
// webhook stays disabled when no passphrase is configured.
func newLeaderboardHandler(boards *service.LeaderboardService, deps *Dependencies, logger *slog.Logger) *handler.LeaderboardHandler {
	if deps.Verifier == nil {
		return handler.NewLeaderboardHandler(boards, nil, logger)
	}
	return handler.NewLeaderboardHandler(boards, deps.Verifier, logger)
}

// SweepMode runs exactly one full sweep, archives the report, and exits.
func (a *App) SweepMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sweep mode")
	svcs := a.buildServices(deps)

	report := svcs.orch.Sweep(ctx)
	archiver := pipeline.NewReportArchiver(deps.BlobWriter, a.logger)
	if err := archiver.Archive(ctx, report); err != nil {
		a.logger.ErrorContext(ctx, "sweep report archival failed",
			slog.String("error", err.Error()),
		)
	}

	a.logger.InfoContext(ctx, "sweep finished",
		slog.String("sweep_id", report.ID),
		slog.Int("total", report.Total),
		slog.Int("updated", report.Updated),
		slog.Int("absent", report.Absent),
		slog.Int("transient", report.Transient),
		slog.Int("unexpected", report.Unexpected),
	)
	return nil
}

// ImportMode registers one deployment batch from the configured manifest
// key or inline address list, then exits.
func (a *App) ImportMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting import mode")
	svcs := a.buildServices(deps)

	var (
		report service.ImportReport
		err    error
	)
	switch {
	case a.cfg.Import.ManifestKey != "":
		report, err = svcs.imports.ImportFromManifest(ctx, a.cfg.Import.ManifestKey)
	case len(a.cfg.Import.Addresses) > 0:
		report, err = svcs.imports.ImportDeployments(ctx, a.cfg.Import.Addresses)
	default:
		return fmt.Errorf("app: import mode needs import.manifest_key or import.addresses")
	}
	if err != nil {
		return fmt.Errorf("app: import: %w", err)
	}

	a.logger.InfoContext(ctx, "import finished",
		slog.String("batch", report.Batch.String()),
		slog.Int("imported", report.Imported),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
	)
	return nil
}
