package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arenabets/arenasync/internal/domain"
)

// RefreshChannel is the signal-bus channel carrying refresh events.
const RefreshChannel = "state.refreshed"

// Config carries the orchestrator's collaborators. Ledger handles and the
// cache-enabled flag are explicit construction-time inputs, not ambient
// process state, so tests can swap in fakes.
type Config struct {
	Fetcher  domain.StateFetcher
	Markets  domain.MarketStore
	Claims   domain.ClaimStore
	Balances domain.BalanceStore
	Cache    domain.SnapshotCache // optional hot mirror
	Registry domain.ContractRegistry
	Bus      domain.SignalBus // optional
	Policy   *FreshnessPolicy

	// CacheEnabled controls collection-wide serving: when false, list reads
	// must force a synchronous sweep before answering.
	CacheEnabled bool

	// StakeTokenName is the logical registry name of the stake token used
	// for balance refreshes.
	StakeTokenName string
}

// Orchestrator composes the fetcher, stores, and freshness policy into
// per-entity refresh operations and a full sweep.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator from its explicit collaborators.
func New(cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.Policy == nil {
		cfg.Policy = NewFreshnessPolicy(0)
	}
	if cfg.StakeTokenName == "" {
		cfg.StakeTokenName = "stakeToken"
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "syncer")),
		now:    time.Now,
	}
}

// CacheEnabled reports whether collection reads may serve-then-refresh-async.
func (o *Orchestrator) CacheEnabled() bool {
	return o.cfg.CacheEnabled
}

// Policy returns the freshness policy in force.
func (o *Orchestrator) Policy() *FreshnessPolicy {
	return o.cfg.Policy
}

// classify maps a fetch error onto the sync outcome taxonomy.
func classify(err error) domain.SyncStatus {
	switch {
	case err == nil:
		return domain.SyncUpdated
	case errors.Is(err, domain.ErrAbsentEntity):
		return domain.SyncAbsent
	case errors.Is(err, domain.ErrTransientChain):
		return domain.SyncTransient
	default:
		return domain.SyncUnexpected
	}
}

// RefreshMarket fetches the market's authoritative state and replaces the
// stored snapshot. An absent entity is a no-op with a nil error; a transient
// chain error leaves the prior mirror untouched and returns the cause; an
// unexpected error is logged with full context and returned without ever
// panicking the caller's loop.
func (o *Orchestrator) RefreshMarket(ctx context.Context, address string) (domain.MarketSnapshot, domain.SyncStatus, error) {
	state, err := o.cfg.Fetcher.FetchMarket(ctx, address)
	switch status := classify(err); status {
	case domain.SyncAbsent:
		o.logger.DebugContext(ctx, "market absent on ledger", slog.String("market", address))
		return domain.MarketSnapshot{}, domain.SyncAbsent, nil
	case domain.SyncTransient:
		o.logger.WarnContext(ctx, "transient chain error, keeping prior mirror",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		return domain.MarketSnapshot{}, domain.SyncTransient, err
	case domain.SyncUnexpected:
		o.logger.ErrorContext(ctx, "unexpected fetch failure",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		return domain.MarketSnapshot{}, domain.SyncUnexpected, err
	}

	// Preserve the batch assigned at import; refreshes change mirrored
	// fields only.
	var batch domain.BatchID
	if prior, err := o.cfg.Markets.Get(ctx, address); err == nil {
		batch = prior.Batch
	} else if !errors.Is(err, domain.ErrNotFound) {
		o.logger.ErrorContext(ctx, "prior snapshot lookup failed",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		return domain.MarketSnapshot{}, domain.SyncUnexpected, err
	}

	snap := domain.MarketSnapshot{
		Address:      address,
		Phase:        state.Phase,
		PoolA:        state.PoolA,
		PoolB:        state.PoolB,
		Winner:       state.Winner,
		LockTime:     state.LockTime,
		ResolveTime:  state.ResolveTime,
		LastSyncedAt: o.now().UTC(),
		Batch:        batch,
	}
	if err := o.cfg.Markets.Upsert(ctx, snap); err != nil {
		o.logger.ErrorContext(ctx, "snapshot upsert failed",
			slog.String("market", address),
			slog.String("error", err.Error()),
		)
		return domain.MarketSnapshot{}, domain.SyncUnexpected, err
	}
	o.cacheSet(ctx, snap)
	o.publish(ctx, "market", address, string(snap.Phase))

	return snap, domain.SyncUpdated, nil
}

// RefreshMarketAsync schedules a fire-and-forget refresh. The spawning
// request never waits on it; a dropped in-flight refresh cannot corrupt
// stored state because every upsert is atomic and idempotent.
func (o *Orchestrator) RefreshMarketAsync(address string) {
	go func() {
		if _, _, err := o.RefreshMarket(context.Background(), address); err != nil {
			o.logger.Warn("background market refresh failed",
				slog.String("market", address),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// GetMarket serves the mirror for one market. A fresh snapshot is answered
// as-is (cached=true). A stale or missing snapshot triggers a synchronous
// refresh; on success the triggering read observes the new state
// (cached=false). When the refresh cannot produce a fresher value the best
// available cached snapshot is served with the stale marker rather than
// erroring; only a missing mirror plus a failed fetch surfaces the failure.
func (o *Orchestrator) GetMarket(ctx context.Context, address string) (domain.MarketView, error) {
	snap, found := o.lookup(ctx, address)
	if found && o.cfg.Policy.IsFresh(snap.LastSyncedAt) {
		return domain.MarketView{MarketSnapshot: snap, Cached: true}, nil
	}

	fresh, status, err := o.RefreshMarket(ctx, address)
	switch status {
	case domain.SyncUpdated:
		return domain.MarketView{MarketSnapshot: fresh, Cached: false}, nil
	case domain.SyncAbsent:
		if found {
			return domain.MarketView{MarketSnapshot: snap, Cached: true, Stale: true}, nil
		}
		return domain.MarketView{}, fmt.Errorf("syncer: market %s: %w", address, domain.ErrNotFound)
	default:
		if found {
			return domain.MarketView{MarketSnapshot: snap, Cached: true, Stale: true}, nil
		}
		return domain.MarketView{}, fmt.Errorf("syncer: market %s unavailable: %w", address, err)
	}
}

// RefreshUserClaim fetches and replaces the claim tuple for (market, user),
// creating the row on first access.
func (o *Orchestrator) RefreshUserClaim(ctx context.Context, market, user string) (domain.UserClaim, domain.SyncStatus, error) {
	state, err := o.cfg.Fetcher.FetchClaim(ctx, market, user)
	switch status := classify(err); status {
	case domain.SyncAbsent:
		o.logger.DebugContext(ctx, "market absent on ledger", slog.String("market", market))
		return domain.UserClaim{}, domain.SyncAbsent, nil
	case domain.SyncTransient:
		o.logger.WarnContext(ctx, "transient chain error, keeping prior claim",
			slog.String("market", market),
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		return domain.UserClaim{}, domain.SyncTransient, err
	case domain.SyncUnexpected:
		o.logger.ErrorContext(ctx, "unexpected claim fetch failure",
			slog.String("market", market),
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		return domain.UserClaim{}, domain.SyncUnexpected, err
	}

	claim := domain.UserClaim{
		Market:       market,
		User:         user,
		AClaims:      state.AClaims,
		BClaims:      state.BClaims,
		Redeemed:     state.Redeemed,
		LastSyncedAt: o.now().UTC(),
	}
	if err := o.cfg.Claims.Upsert(ctx, claim); err != nil {
		return domain.UserClaim{}, domain.SyncUnexpected, err
	}
	o.publish(ctx, "claim", market+"/"+user, "")

	return claim, domain.SyncUpdated, nil
}

// GetUserClaim serves the claim mirror, refreshing synchronously when stale
// or missing; claims are created lazily on first access. A prior mirror
// served because the refresh failed is marked stale.
func (o *Orchestrator) GetUserClaim(ctx context.Context, market, user string) (domain.ClaimView, error) {
	prior, err := o.cfg.Claims.Get(ctx, market, user)
	found := err == nil
	if found && o.cfg.Policy.IsFresh(prior.LastSyncedAt) {
		return domain.ClaimView{UserClaim: prior, Cached: true}, nil
	}

	claim, status, refreshErr := o.RefreshUserClaim(ctx, market, user)
	if status == domain.SyncUpdated {
		return domain.ClaimView{UserClaim: claim}, nil
	}
	if found {
		return domain.ClaimView{UserClaim: prior, Cached: true, Stale: true}, nil
	}
	if status == domain.SyncAbsent {
		return domain.ClaimView{}, fmt.Errorf("syncer: claim %s/%s: %w", market, user, domain.ErrNotFound)
	}
	return domain.ClaimView{}, fmt.Errorf("syncer: claim %s/%s unavailable: %w", market, user, refreshErr)
}

// RefreshUserBalance resolves the stake token through the registry and
// replaces the user's balance mirror. An unregistered token is a skip, not
// an error.
func (o *Orchestrator) RefreshUserBalance(ctx context.Context, user string) (domain.UserBalance, domain.SyncStatus, error) {
	token, err := o.cfg.Registry.Resolve(ctx, o.cfg.StakeTokenName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			o.logger.WarnContext(ctx, "stake token unregistered, skipping balance refresh",
				slog.String("name", o.cfg.StakeTokenName),
			)
			return domain.UserBalance{}, domain.SyncSkipped, nil
		}
		return domain.UserBalance{}, domain.SyncUnexpected, err
	}

	balance, err := o.cfg.Fetcher.FetchBalance(ctx, token, user)
	switch status := classify(err); status {
	case domain.SyncAbsent:
		o.logger.DebugContext(ctx, "stake token absent on ledger", slog.String("token", token))
		return domain.UserBalance{}, domain.SyncAbsent, nil
	case domain.SyncTransient:
		o.logger.WarnContext(ctx, "transient chain error, keeping prior balance",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		return domain.UserBalance{}, domain.SyncTransient, err
	case domain.SyncUnexpected:
		o.logger.ErrorContext(ctx, "unexpected balance fetch failure",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		return domain.UserBalance{}, domain.SyncUnexpected, err
	}

	bal := domain.UserBalance{
		User:         user,
		Balance:      balance,
		LastSyncedAt: o.now().UTC(),
	}
	if err := o.cfg.Balances.Upsert(ctx, bal); err != nil {
		return domain.UserBalance{}, domain.SyncUnexpected, err
	}
	o.publish(ctx, "balance", user, "")

	return bal, domain.SyncUpdated, nil
}

// GetUserBalance serves the balance mirror, refreshing synchronously when
// stale or missing. A prior mirror served because the refresh failed is
// marked stale.
func (o *Orchestrator) GetUserBalance(ctx context.Context, user string) (domain.BalanceView, error) {
	prior, err := o.cfg.Balances.Get(ctx, user)
	found := err == nil
	if found && o.cfg.Policy.IsFresh(prior.LastSyncedAt) {
		return domain.BalanceView{UserBalance: prior, Cached: true}, nil
	}

	bal, status, refreshErr := o.RefreshUserBalance(ctx, user)
	if status == domain.SyncUpdated {
		return domain.BalanceView{UserBalance: bal}, nil
	}
	if found {
		return domain.BalanceView{UserBalance: prior, Cached: true, Stale: true}, nil
	}
	if status == domain.SyncSkipped || status == domain.SyncAbsent {
		return domain.BalanceView{}, fmt.Errorf("syncer: balance %s: %w", user, domain.ErrNotFound)
	}
	return domain.BalanceView{}, fmt.Errorf("syncer: balance %s unavailable: %w", user, refreshErr)
}

// Sweep refreshes every known market sequentially to bound load on the
// ledger. A single entity's failure never aborts the pass; each outcome is
// tallied into the report. Context cancellation stops the sweep early with
// the partial tally.
func (o *Orchestrator) Sweep(ctx context.Context) domain.SweepReport {
	report := domain.SweepReport{
		ID:        uuid.New().String(),
		StartedAt: o.now().UTC(),
	}

	markets, err := o.cfg.Markets.ListAll(ctx)
	if err != nil {
		o.logger.ErrorContext(ctx, "sweep could not list markets", slog.String("error", err.Error()))
		report.FinishedAt = o.now().UTC()
		return report
	}
	report.Total = len(markets)

	for _, m := range markets {
		if ctx.Err() != nil {
			o.logger.WarnContext(ctx, "sweep cancelled", slog.String("sweep_id", report.ID))
			break
		}

		_, status, err := o.RefreshMarket(ctx, m.Address)
		switch status {
		case domain.SyncUpdated:
			report.Updated++
		case domain.SyncAbsent:
			report.Absent++
			report.Failures = append(report.Failures, domain.SweepFailure{Address: m.Address, Status: status})
		case domain.SyncTransient:
			report.Transient++
			report.Failures = append(report.Failures, domain.SweepFailure{Address: m.Address, Status: status, Error: err.Error()})
		default:
			report.Unexpected++
			report.Failures = append(report.Failures, domain.SweepFailure{Address: m.Address, Status: status, Error: err.Error()})
		}
	}

	report.FinishedAt = o.now().UTC()
	o.logger.InfoContext(ctx, "sweep finished",
		slog.String("sweep_id", report.ID),
		slog.Int("total", report.Total),
		slog.Int("updated", report.Updated),
		slog.Int("absent", report.Absent),
		slog.Int("transient", report.Transient),
		slog.Int("unexpected", report.Unexpected),
	)
	return report
}

// SweepAsync schedules a fire-and-forget sweep.
func (o *Orchestrator) SweepAsync() {
	go o.Sweep(context.Background())
}

// lookup reads the mirror, preferring the hot cache and backfilling it on a
// store hit. Cache trouble is warn-only; the store remains authoritative.
func (o *Orchestrator) lookup(ctx context.Context, address string) (domain.MarketSnapshot, bool) {
	if o.cfg.Cache != nil {
		if snap, err := o.cfg.Cache.Get(ctx, address); err == nil {
			return snap, true
		} else if !errors.Is(err, domain.ErrNotFound) {
			o.logger.WarnContext(ctx, "snapshot cache read failed",
				slog.String("market", address),
				slog.String("error", err.Error()),
			)
		}
	}

	snap, err := o.cfg.Markets.Get(ctx, address)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			o.logger.ErrorContext(ctx, "snapshot store read failed",
				slog.String("market", address),
				slog.String("error", err.Error()),
			)
		}
		return domain.MarketSnapshot{}, false
	}
	o.cacheSet(ctx, snap)
	return snap, true
}

func (o *Orchestrator) cacheSet(ctx context.Context, snap domain.MarketSnapshot) {
	if o.cfg.Cache == nil {
		return
	}
	if err := o.cfg.Cache.Set(ctx, snap); err != nil {
		o.logger.WarnContext(ctx, "snapshot cache write failed",
			slog.String("market", snap.Address),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, kind, key, detail string) {
	if o.cfg.Bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"event":  RefreshChannel,
		"kind":   kind,
		"key":    key,
		"detail": detail,
	})
	if err := o.cfg.Bus.Publish(ctx, RefreshChannel, payload); err != nil {
		o.logger.WarnContext(ctx, "refresh event publish failed",
			slog.String("kind", kind),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
