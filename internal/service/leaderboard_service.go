package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
)

// SeedEntry is one configured starter row for leaderboard seeding.
type SeedEntry struct {
	Name    string
	LogoURL string
}

// LeaderboardService manages leaderboard snapshot groups. A group for a
// given (date, index) is always replaced wholesale, never partially mutated.
type LeaderboardService struct {
	store   domain.LeaderboardStore
	batches *batch.Manager
	seed    []SeedEntry
	logger  *slog.Logger
}

// NewLeaderboardService creates a LeaderboardService. seed supplies the
// starter rows used by Seed.
func NewLeaderboardService(
	store domain.LeaderboardStore,
	batches *batch.Manager,
	seed []SeedEntry,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		store:   store,
		batches: batches,
		seed:    seed,
		logger:  logger.With(slog.String("component", "leaderboard_service")),
	}
}

// Latest returns the entries of the current batch. An empty collection
// yields an empty set, not an error.
func (s *LeaderboardService) Latest(ctx context.Context) ([]domain.LeaderboardEntry, domain.BatchID, error) {
	current, err := s.batches.Current(ctx, batch.KindLeaderboard)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.BatchID{}, nil
		}
		return nil, domain.BatchID{}, fmt.Errorf("leaderboard_service: current batch: %w", err)
	}

	entries, err := s.store.ListByBatch(ctx, current)
	if err != nil {
		return nil, domain.BatchID{}, fmt.Errorf("leaderboard_service: list batch %s: %w", current, err)
	}
	return entries, current, nil
}

// Submit stores one snapshot group. When index is nil a fresh index is
// computed for the date; a retried submission passes the explicit index of
// the original attempt and lands exactly one copy thanks to the
// delete-then-insert replacement.
func (s *LeaderboardService) Submit(ctx context.Context, date time.Time, index *int, entries []domain.LeaderboardEntry) (domain.BatchID, error) {
	if len(entries) == 0 {
		return domain.BatchID{}, fmt.Errorf("leaderboard_service: empty snapshot")
	}
	if err := domain.ValidateRanks(entries); err != nil {
		return domain.BatchID{}, fmt.Errorf("leaderboard_service: %w", err)
	}

	idx := 0
	if index != nil {
		if *index < 0 {
			return domain.BatchID{}, fmt.Errorf("leaderboard_service: negative batch index %d", *index)
		}
		idx = *index
	} else {
		next, err := s.batches.NextIndex(ctx, batch.KindLeaderboard, date)
		if err != nil {
			return domain.BatchID{}, fmt.Errorf("leaderboard_service: next index: %w", err)
		}
		idx = next
	}

	target := domain.NewBatchID(date, idx)
	if err := s.store.ReplaceGroup(ctx, target, entries); err != nil {
		return domain.BatchID{}, fmt.Errorf("leaderboard_service: submit %s: %w", target, err)
	}

	s.logger.InfoContext(ctx, "leaderboard snapshot stored",
		slog.String("batch", target.String()),
		slog.Int("entries", len(entries)),
	)
	return target, nil
}

// Seed stores the configured starter entries as a fresh batch for today.
func (s *LeaderboardService) Seed(ctx context.Context) (domain.BatchID, error) {
	if len(s.seed) == 0 {
		return domain.BatchID{}, fmt.Errorf("leaderboard_service: no seed entries configured")
	}

	entries := make([]domain.LeaderboardEntry, len(s.seed))
	for i, e := range s.seed {
		entries[i] = domain.LeaderboardEntry{
			Rank:    i + 1,
			Name:    e.Name,
			Score:   0,
			LogoURL: e.LogoURL,
		}
	}
	return s.Submit(ctx, time.Now().UTC(), nil, entries)
}

// Reset deletes the whole collection, restarting indexing at 0 for today.
func (s *LeaderboardService) Reset(ctx context.Context) error {
	return s.batches.Reset(ctx, batch.KindLeaderboard)
}
