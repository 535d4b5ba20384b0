package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/domain"
	"github.com/arenabets/arenasync/internal/mock"
)

const (
	mktX = "0x1111111111111111111111111111111111111111"
	mktY = "0x2222222222222222222222222222222222222222"
	mktZ = "0x3333333333333333333333333333333333333333"
	usr1 = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	tok1 = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type harness struct {
	orch     *Orchestrator
	fetcher  *mock.Fetcher
	markets  *mock.MarketStore
	claims   *mock.ClaimStore
	balances *mock.BalanceStore
	registry *mock.Registry
	clock    *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	h := &harness{
		fetcher:  mock.NewFetcher(),
		markets:  mock.NewMarketStore(),
		claims:   mock.NewClaimStore(),
		balances: mock.NewBalanceStore(),
		registry: &mock.Registry{Addresses: map[string]string{"stakeToken": tok1}},
		clock:    &now,
	}

	policy := NewFreshnessPolicy(30 * time.Second)
	policy.now = func() time.Time { return *h.clock }

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.orch = New(Config{
		Fetcher:      h.fetcher,
		Markets:      h.markets,
		Claims:       h.claims,
		Balances:     h.balances,
		Registry:     h.registry,
		Policy:       policy,
		CacheEnabled: true,
	}, logger)
	h.orch.now = func() time.Time { return *h.clock }

	return h
}

func (h *harness) advance(d time.Duration) {
	*h.clock = h.clock.Add(d)
}

func TestRefreshMarketUpserts(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Markets[mktX] = domain.MarketState{
		Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50",
	}

	snap, status, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncUpdated, status)
	assert.Equal(t, domain.PhaseTrading, snap.Phase)
	assert.Equal(t, "100", snap.PoolA)
	assert.Equal(t, *h.clock, snap.LastSyncedAt)

	stored, err := h.markets.Get(context.Background(), mktX)
	require.NoError(t, err)
	assert.Equal(t, snap, stored)
}

func TestRefreshMarketIdempotent(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Markets[mktX] = domain.MarketState{
		Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50",
	}

	first, _, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err)
	second, _, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err)
	assert.Equal(t, first, second, "identical fetched state applied twice yields identical stored state")
}

func TestRefreshMarketAbsentIsNoOp(t *testing.T) {
	h := newHarness(t)

	_, status, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err, "absent entity never raises to the caller")
	assert.Equal(t, domain.SyncAbsent, status)

	_, err = h.markets.Get(context.Background(), mktX)
	assert.ErrorIs(t, err, domain.ErrNotFound, "absent entity never produces a stored snapshot")
}

func TestRefreshMarketTransientKeepsPrior(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50"}
	_, _, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err)
	before, err := h.markets.Get(context.Background(), mktX)
	require.NoError(t, err)

	h.fetcher.Errs[mktX] = fmt.Errorf("%w: empty return", domain.ErrTransientChain)
	_, status, err := h.orch.RefreshMarket(context.Background(), mktX)
	assert.Equal(t, domain.SyncTransient, status)
	assert.ErrorIs(t, err, domain.ErrTransientChain)

	after, err := h.markets.Get(context.Background(), mktX)
	require.NoError(t, err)
	assert.Equal(t, before, after, "transient failure leaves the prior mirror untouched")
}

func TestRefreshMarketPreservesBatch(t *testing.T) {
	h := newHarness(t)
	batch := domain.NewBatchID(*h.clock, 2)
	require.NoError(t, h.markets.Upsert(context.Background(), domain.MarketSnapshot{
		Address: mktX, Phase: domain.PhaseTrading, PoolA: "1", PoolB: "1",
		LastSyncedAt: *h.clock, Batch: batch,
	}))

	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseLocked, PoolA: "1", PoolB: "1"}
	snap, _, err := h.orch.RefreshMarket(context.Background(), mktX)
	require.NoError(t, err)
	assert.Equal(t, batch, snap.Batch, "refresh changes mirrored fields only, not the import batch")
}

func TestGetMarketServeStaleScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// t=0: market X mirrored with phase=trading, pools=(100,50).
	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50"}
	_, _, err := h.orch.RefreshMarket(ctx, mktX)
	require.NoError(t, err)

	// Still inside the window: answered from cache.
	h.advance(10 * time.Second)
	view, err := h.orch.GetMarket(ctx, mktX)
	require.NoError(t, err)
	assert.True(t, view.Cached)
	assert.Equal(t, domain.PhaseTrading, view.Phase)

	// t=31s: stale; the ledger now reports locked. The triggering read must
	// observe the new state and report cached=false.
	h.advance(21 * time.Second)
	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseLocked, PoolA: "100", PoolB: "50"}
	view, err = h.orch.GetMarket(ctx, mktX)
	require.NoError(t, err)
	assert.False(t, view.Cached)
	assert.Equal(t, domain.PhaseLocked, view.Phase)

	// t=35s: within the new window again.
	h.advance(4 * time.Second)
	view, err = h.orch.GetMarket(ctx, mktX)
	require.NoError(t, err)
	assert.True(t, view.Cached)
	assert.Equal(t, domain.PhaseLocked, view.Phase)
}

func TestGetMarketDegradesToStaleOnFetchFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "100", PoolB: "50"}
	_, _, err := h.orch.RefreshMarket(ctx, mktX)
	require.NoError(t, err)

	h.advance(31 * time.Second)
	h.fetcher.Errs[mktX] = fmt.Errorf("%w: call rejected", domain.ErrTransientChain)

	view, err := h.orch.GetMarket(ctx, mktX)
	require.NoError(t, err, "the cache shields the caller from fetch failures")
	assert.True(t, view.Cached)
	assert.True(t, view.Stale)
	assert.Equal(t, domain.PhaseTrading, view.Phase)
}

func TestGetMarketNoCacheAndFetchFails(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Errs[mktX] = errors.New("boom")

	_, err := h.orch.GetMarket(context.Background(), mktX)
	require.Error(t, err, "with no cached value the failure surfaces to the requester")
}

func TestGetMarketAbsentUnknown(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.GetMarket(context.Background(), mktX)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSweepTallyAndResilience(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "1", PoolB: "2"}
	h.fetcher.Markets[mktY] = domain.MarketState{Phase: domain.PhaseLocked, PoolA: "3", PoolB: "4"}
	h.fetcher.Markets[mktZ] = domain.MarketState{Phase: domain.PhaseResolved, PoolA: "5", PoolB: "6"}
	for _, addr := range []string{mktX, mktY, mktZ} {
		_, _, err := h.orch.RefreshMarket(ctx, addr)
		require.NoError(t, err)
	}

	// Two of three fail transiently on the next pass.
	h.advance(time.Minute)
	h.fetcher.Errs[mktX] = fmt.Errorf("%w: empty return", domain.ErrTransientChain)
	h.fetcher.Errs[mktY] = fmt.Errorf("%w: call rejected", domain.ErrTransientChain)
	beforeX, _ := h.markets.Get(ctx, mktX)
	beforeY, _ := h.markets.Get(ctx, mktY)
	h.fetcher.Calls = nil

	report := h.orch.Sweep(ctx)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, h.fetcher.CallCount("market:"), "a sweep visits every entity despite failures")
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.Transient)
	assert.Equal(t, 0, report.Unexpected)
	assert.Len(t, report.Failures, 2)

	afterX, _ := h.markets.Get(ctx, mktX)
	afterY, _ := h.markets.Get(ctx, mktY)
	assert.Equal(t, beforeX, afterX)
	assert.Equal(t, beforeY, afterY)
}

func TestSweepCountsUnexpected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.fetcher.Markets[mktX] = domain.MarketState{Phase: domain.PhaseTrading, PoolA: "1", PoolB: "2"}
	_, _, err := h.orch.RefreshMarket(ctx, mktX)
	require.NoError(t, err)

	h.fetcher.Errs[mktX] = errors.New("connection reset")
	report := h.orch.Sweep(ctx)
	assert.Equal(t, 1, report.Unexpected)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.SyncUnexpected, report.Failures[0].Status)
}

func TestRefreshUserClaimCreatesLazily(t *testing.T) {
	h := newHarness(t)
	h.fetcher.Claims[mktX+"/"+usr1] = domain.ClaimState{AClaims: "10", BClaims: "0", Redeemed: false}

	claim, status, err := h.orch.RefreshUserClaim(context.Background(), mktX, usr1)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncUpdated, status)
	assert.Equal(t, "10", claim.AClaims)

	stored, err := h.claims.Get(context.Background(), mktX, usr1)
	require.NoError(t, err)
	assert.Equal(t, claim, stored)
}

func TestRefreshUserBalanceSkipsWhenUnregistered(t *testing.T) {
	h := newHarness(t)
	delete(h.registry.Addresses, "stakeToken")

	_, status, err := h.orch.RefreshUserBalance(context.Background(), usr1)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSkipped, status)
	_, err = h.balances.Get(context.Background(), usr1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUserBalanceRefreshesWhenStale(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fetcher.Balances[tok1+"/"+usr1] = "500"

	view, err := h.orch.GetUserBalance(ctx, usr1)
	require.NoError(t, err)
	assert.False(t, view.Cached)
	assert.Equal(t, "500", view.Balance)

	h.fetcher.Balances[tok1+"/"+usr1] = "700"
	view, err = h.orch.GetUserBalance(ctx, usr1)
	require.NoError(t, err)
	assert.True(t, view.Cached, "fresh mirror answers without refetch")
	assert.False(t, view.Stale)
	assert.Equal(t, "500", view.Balance)

	h.advance(time.Minute)
	view, err = h.orch.GetUserBalance(ctx, usr1)
	require.NoError(t, err)
	assert.False(t, view.Cached)
	assert.Equal(t, "700", view.Balance)
}

func TestGetUserBalanceDegradesToStaleOnFetchFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fetcher.Balances[tok1+"/"+usr1] = "500"

	_, err := h.orch.GetUserBalance(ctx, usr1)
	require.NoError(t, err)

	h.advance(time.Minute)
	h.fetcher.Errs[tok1+"/"+usr1] = fmt.Errorf("%w: call rejected", domain.ErrTransientChain)

	view, err := h.orch.GetUserBalance(ctx, usr1)
	require.NoError(t, err, "a prior mirror shields the caller from the fetch failure")
	assert.True(t, view.Cached)
	assert.True(t, view.Stale)
	assert.Equal(t, "500", view.Balance)
}

func TestGetUserClaimDegradesToStaleOnFetchFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.fetcher.Claims[mktX+"/"+usr1] = domain.ClaimState{AClaims: "10", BClaims: "0"}

	view, err := h.orch.GetUserClaim(ctx, mktX, usr1)
	require.NoError(t, err)
	assert.False(t, view.Cached)
	assert.False(t, view.Stale)

	h.advance(time.Minute)
	h.fetcher.Errs[mktX+"/"+usr1] = errors.New("connection reset")

	view, err = h.orch.GetUserClaim(ctx, mktX, usr1)
	require.NoError(t, err)
	assert.True(t, view.Cached)
	assert.True(t, view.Stale)
	assert.Equal(t, "10", view.AClaims)
}
