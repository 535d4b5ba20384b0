package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/mock"
	"github.com/arenabets/arenasync/internal/service"
)

func newLeaderboardFixture(t *testing.T, seed []service.SeedEntry) (*service.LeaderboardService, *mock.LeaderboardStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := mock.NewLeaderboardStore()
	batches := batch.NewManager(mock.NewMarketStore(), store, logger)
	return service.NewLeaderboardService(store, batches, seed, logger), store
}

func entries(names ...string) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(names))
	for i, name := range names {
		out[i] = domain.LeaderboardEntry{Rank: i + 1, Name: name, Score: int64(100 - i)}
	}
	return out
}

func TestSubmitAssignsNextIndex(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

	first, err := svc.Submit(ctx, day, nil, entries("alpha", "beta"))
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, domain.Day(day), first.Date)

	second, err := svc.Submit(ctx, day, nil, entries("alpha", "beta"))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index, "same-day submissions get increasing indexes")

	otherDay := day.AddDate(0, 0, 1)
	third, err := svc.Submit(ctx, otherDay, nil, entries("alpha", "beta"))
	require.NoError(t, err)
	assert.Equal(t, 0, third.Index, "indexing restarts per date")
}

func TestSubmitExplicitIndexIsIdempotent(t *testing.T) {
	svc, store := newLeaderboardFixture(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	idx := 3

	batchID, err := svc.Submit(ctx, day, &idx, entries("alpha", "beta", "gamma"))
	require.NoError(t, err)

	// Webhook retry: same date and index, same payload.
	retry, err := svc.Submit(ctx, day, &idx, entries("alpha", "beta", "gamma"))
	require.NoError(t, err)
	assert.Equal(t, batchID, retry)

	group, err := store.ListByBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Len(t, group, 3, "a retried submission lands exactly one copy")
	assert.Equal(t, 2, store.ReplaceCalls)
}

func TestSubmitRejectsBadRanks(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	dup := []domain.LeaderboardEntry{
		{Rank: 1, Name: "alpha"},
		{Rank: 1, Name: "beta"},
	}
	_, err := svc.Submit(ctx, day, nil, dup)
	assert.ErrorIs(t, err, domain.ErrInvalidRanks)

	gap := []domain.LeaderboardEntry{
		{Rank: 1, Name: "alpha"},
		{Rank: 3, Name: "beta"},
	}
	_, err = svc.Submit(ctx, day, nil, gap)
	assert.ErrorIs(t, err, domain.ErrInvalidRanks)
}

func TestLatestReturnsCurrentBatchOnly(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Submit(ctx, day, nil, entries("alpha", "beta"))
	require.NoError(t, err)
	latestBatch, err := svc.Submit(ctx, day, nil, entries("gamma", "delta", "epsilon"))
	require.NoError(t, err)

	got, batchID, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, latestBatch, batchID)
	require.Len(t, got, 3)
	assert.Equal(t, "gamma", got[0].Name)
}

func TestLatestEmptyBoardIsNotAnError(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)

	got, batchID, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, domain.BatchID{}, batchID)
}

func TestSeedInstallsRoster(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, []service.SeedEntry{
		{Name: "alpha", LogoURL: "https://cdn.example/a.png"},
		{Name: "beta", LogoURL: "https://cdn.example/b.png"},
	})
	ctx := context.Background()

	batchID, err := svc.Seed(ctx)
	require.NoError(t, err)

	got, _, err := svc.Latest(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, int64(0), got[0].Score)
	assert.Equal(t, "alpha", got[0].Name)
	assert.Equal(t, domain.Day(time.Now().UTC()), batchID.Date)
}

func TestSeedWithoutRoster(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)

	_, err := svc.Seed(context.Background())
	assert.Error(t, err)
}

func TestResetRestartsIndexing(t *testing.T) {
	svc, _ := newLeaderboardFixture(t, nil)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.Submit(ctx, day, nil, entries("alpha"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, day, nil, entries("alpha"))
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))

	batchID, err := svc.Submit(ctx, day, nil, entries("alpha"))
	require.NoError(t, err)
	assert.Equal(t, 0, batchID.Index, "after a reset indexing restarts at zero")
}
