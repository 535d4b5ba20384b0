// Package service composes the sync core, batch manager, and boundary
// collaborators into the operations the HTTP layer serves.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/syncer"
)

// MarketService serves market mirrors and performs the close-market write.
type MarketService struct {
	orch    *syncer.Orchestrator
	markets domain.MarketStore
	batches *batch.Manager
	mutator domain.MarketMutator // nil when no operator key is configured
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	orch *syncer.Orchestrator,
	markets domain.MarketStore,
	batches *batch.Manager,
	mutator domain.MarketMutator,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		orch:    orch,
		markets: markets,
		batches: batches,
		mutator: mutator,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket serves one market mirror with the serve-stale contract.
func (s *MarketService) GetMarket(ctx context.Context, address string) (domain.MarketView, error) {
	return s.orch.GetMarket(ctx, address)
}

// ListLatest returns the snapshots of the current deployment batch. Rows
// from older batches are retained but never served here. With caching
// enabled the list answers from the store immediately and schedules an
// asynchronous sweep when any row is past its freshness window; with caching
// disabled a synchronous sweep runs before answering.
func (s *MarketService) ListLatest(ctx context.Context) ([]domain.MarketSnapshot, domain.BatchID, error) {
	if !s.orch.CacheEnabled() {
		s.orch.Sweep(ctx)
	}

	current, err := s.batches.Current(ctx, batch.KindMarkets)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.BatchID{}, nil
		}
		return nil, domain.BatchID{}, fmt.Errorf("market_service: current batch: %w", err)
	}

	snaps, err := s.markets.ListByBatch(ctx, current)
	if err != nil {
		return nil, domain.BatchID{}, fmt.Errorf("market_service: list batch %s: %w", current, err)
	}

	if s.orch.CacheEnabled() {
		for _, m := range snaps {
			if !s.orch.Policy().IsFresh(m.LastSyncedAt) {
				s.orch.SweepAsync()
				break
			}
		}
	}

	return snaps, current, nil
}

// ForceRefresh refreshes one market synchronously regardless of freshness.
func (s *MarketService) ForceRefresh(ctx context.Context, address string) (domain.MarketSnapshot, domain.SyncStatus, error) {
	return s.orch.RefreshMarket(ctx, address)
}

// CloseMarket submits the close transaction and synchronously refreshes the
// touched market before returning, so the response reflects post-mutation
// state even though the periodic sweep stays uncoordinated with it.
func (s *MarketService) CloseMarket(ctx context.Context, address string) (string, domain.MarketSnapshot, error) {
	if s.mutator == nil {
		return "", domain.MarketSnapshot{}, fmt.Errorf("market_service: close %s: no operator key configured: %w", address, domain.ErrUnauthorized)
	}

	txHash, err := s.mutator.CloseMarket(ctx, address)
	if err != nil {
		return "", domain.MarketSnapshot{}, fmt.Errorf("market_service: close %s: %w", address, err)
	}

	snap, status, err := s.orch.RefreshMarket(ctx, address)
	if status != domain.SyncUpdated {
		// The write landed; serving must not pretend otherwise. Log and let
		// the caller read the tx hash, the mirror catches up on next trigger.
		s.logger.WarnContext(ctx, "post-close refresh did not update mirror",
			slog.String("market", address),
			slog.String("status", string(status)),
		)
		if err != nil {
			return txHash, domain.MarketSnapshot{}, fmt.Errorf("market_service: post-close refresh %s: %w", address, err)
		}
		return txHash, domain.MarketSnapshot{}, nil
	}

	return txHash, snap, nil
}
