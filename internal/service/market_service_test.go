package service_test

import (
	"context"
	"errors"
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
	"github.com/arenabets/arenasync/internal/syncer"
)

const (
	mktOld = "0x1111111111111111111111111111111111111111"
	mktNew = "0x2222222222222222222222222222222222222222"
	tokStk = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type marketFixture struct {
	fetcher *mock.Fetcher
	markets *mock.MarketStore
	svc     *service.MarketService
	batches *batch.Manager
	mutator *mock.Mutator
}

func newMarketFixture(t *testing.T, cacheEnabled bool, withMutator bool) *marketFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &marketFixture{
		fetcher: mock.NewFetcher(),
		markets: mock.NewMarketStore(),
	}

	orch := syncer.New(syncer.Config{
		Fetcher:      f.fetcher,
		Markets:      f.markets,
		Claims:       mock.NewClaimStore(),
		Balances:     mock.NewBalanceStore(),
		Registry:     &mock.Registry{Addresses: map[string]string{"stakeToken": tokStk}},
		Policy:       syncer.NewFreshnessPolicy(30 * time.Second),
		CacheEnabled: cacheEnabled,
	}, logger)

	f.batches = batch.NewManager(f.markets, mock.NewLeaderboardStore(), logger)

	var mutator domain.MarketMutator
	if withMutator {
		f.mutator = &mock.Mutator{TxHash: "0xdeadbeef"}
		mutator = f.mutator
	}
	f.svc = service.NewMarketService(orch, f.markets, f.batches, mutator, logger)
	return f
}

func freshSnapshot(address string, batchID domain.BatchID) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Address:      address,
		Phase:        domain.PhaseTrading,
		PoolA:        "100",
		PoolB:        "50",
		LastSyncedAt: time.Now().UTC(),
		Batch:        batchID,
	}
}

func TestListLatestServesOnlyCurrentBatch(t *testing.T) {
	f := newMarketFixture(t, true, false)
	ctx := context.Background()

	older := domain.NewBatchID(time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC), 1)
	current := domain.NewBatchID(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, f.markets.Upsert(ctx, freshSnapshot(mktOld, older)))
	require.NoError(t, f.markets.Upsert(ctx, freshSnapshot(mktNew, current)))

	snaps, got, err := f.svc.ListLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, current, got)
	require.Len(t, snaps, 1, "rows from older batches are retained but never served")
	assert.Equal(t, mktNew, snaps[0].Address)
}

func TestListLatestEmptyCollection(t *testing.T) {
	f := newMarketFixture(t, true, false)

	snaps, batchID, err := f.svc.ListLatest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.Equal(t, domain.BatchID{}, batchID)
}

func TestListLatestCacheDisabledSweepsFirst(t *testing.T) {
	f := newMarketFixture(t, false, false)
	ctx := context.Background()

	current := domain.NewBatchID(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 0)
	stale := freshSnapshot(mktNew, current)
	stale.LastSyncedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.markets.Upsert(ctx, stale))

	f.fetcher.Markets[mktNew] = domain.MarketState{
		Phase: domain.PhaseLocked, PoolA: "120", PoolB: "60",
	}

	snaps, _, err := f.svc.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, domain.PhaseLocked, snaps[0].Phase, "with caching off the list blocks on a synchronous sweep")
	assert.Equal(t, "120", snaps[0].PoolA)
}

func TestCloseMarketRefreshesMirror(t *testing.T) {
	f := newMarketFixture(t, true, true)
	ctx := context.Background()

	f.fetcher.Markets[mktNew] = domain.MarketState{
		Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50",
	}
	_, _, err := f.svc.ForceRefresh(ctx, mktNew)
	require.NoError(t, err)

	winner := domain.SideA
	f.mutator.OnClose = func(address string) {
		f.fetcher.Markets[address] = domain.MarketState{
			Phase: domain.PhaseResolved, PoolA: "100", PoolB: "50", Winner: &winner,
		}
	}

	txHash, snap, err := f.svc.CloseMarket(ctx, mktNew)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", txHash)
	assert.Equal(t, domain.PhaseResolved, snap.Phase, "the response reflects post-mutation state")
	require.NotNil(t, snap.Winner)
	assert.Equal(t, domain.SideA, *snap.Winner)
	assert.Equal(t, []string{mktNew}, f.mutator.Closed)
}

func TestCloseMarketWithoutOperatorKey(t *testing.T) {
	f := newMarketFixture(t, true, false)

	_, _, err := f.svc.CloseMarket(context.Background(), mktNew)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCloseMarketSubmitFailure(t *testing.T) {
	f := newMarketFixture(t, true, true)
	f.mutator.Err = errors.New("nonce too low")

	_, _, err := f.svc.CloseMarket(context.Background(), mktNew)
	require.Error(t, err)
	assert.Empty(t, f.mutator.Closed)
}

func TestCloseMarketTxLandsButRefreshFails(t *testing.T) {
	f := newMarketFixture(t, true, true)
	ctx := context.Background()

	f.fetcher.Markets[mktNew] = domain.MarketState{
		Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50",
	}
	_, _, err := f.svc.ForceRefresh(ctx, mktNew)
	require.NoError(t, err)

	f.mutator.OnClose = func(address string) {
		f.fetcher.Errs[address] = errors.New("connection reset")
	}

	txHash, _, err := f.svc.CloseMarket(ctx, mktNew)
	require.Error(t, err, "a failed post-close refresh surfaces")
	assert.Equal(t, "0xdeadbeef", txHash, "the tx hash is still returned; the write landed")
}
