package domain

import (
	"context"
	"time"
)

// BatchVersions exposes the versioning queries shared by both batched
// collections. Implementations compute results fresh on every call; nothing
// is memoized and no cross-process lock is taken.
type BatchVersions interface {
	// CurrentBatch returns the greatest (date, index) pair present, comparing
	// date first. It returns ErrNotFound when the collection is empty.
	CurrentBatch(ctx context.Context) (BatchID, error)

	// MaxIndex returns the greatest index among rows sharing the given date.
	// It returns ErrNotFound when the date has no rows.
	MaxIndex(ctx context.Context, date time.Time) (int, error)

	// Clear deletes every row of the collection, restarting indexing at 0.
	Clear(ctx context.Context) error
}

// MarketStore persists market snapshots keyed by contract address. Upsert is
// a full-row replacement: the last writer wins with no partial-field merge.
type MarketStore interface {
	BatchVersions
	Upsert(ctx context.Context, m MarketSnapshot) error
	Get(ctx context.Context, address string) (MarketSnapshot, error)
	ListByBatch(ctx context.Context, batch BatchID) ([]MarketSnapshot, error)
	ListAll(ctx context.Context) ([]MarketSnapshot, error)
}

// ClaimStore persists per-user claim mirrors keyed by (market, user).
type ClaimStore interface {
	Upsert(ctx context.Context, c UserClaim) error
	Get(ctx context.Context, market, user string) (UserClaim, error)
}

// BalanceStore persists stake-token balance mirrors keyed by user address.
type BalanceStore interface {
	Upsert(ctx context.Context, b UserBalance) error
	Get(ctx context.Context, user string) (UserBalance, error)
}

// LeaderboardStore persists leaderboard batches. ReplaceGroup deletes any
// rows already stored for the batch before inserting, so retried submissions
// are idempotent.
type LeaderboardStore interface {
	BatchVersions
	ReplaceGroup(ctx context.Context, batch BatchID, entries []LeaderboardEntry) error
	ListByBatch(ctx context.Context, batch BatchID) ([]LeaderboardEntry, error)
}
