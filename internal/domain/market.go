package domain

import (
	"fmt"
	"time"
)

// Phase represents the lifecycle stage of a market contract as reported by
// the ledger. The mirror trusts the latest successful fetch; there is no
// client-side monotonic enforcement.
type Phase string

const (
	PhaseTrading   Phase = "trading"
	PhaseLocked    Phase = "locked"
	PhaseResolved  Phase = "resolved"
	PhaseCancelled Phase = "cancelled"
	PhaseUnknown   Phase = "unknown"
)

// Side identifies one of the two pools of a market.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// BatchID identifies one versioned import of a collection: the date truncated
// to a UTC day boundary plus a per-date monotonically increasing index.
type BatchID struct {
	Date  time.Time `json:"date"`
	Index int       `json:"index"`
}

// NewBatchID truncates t to its UTC day boundary and pairs it with index.
func NewBatchID(t time.Time, index int) BatchID {
	return BatchID{Date: Day(t), Index: index}
}

// Day truncates t to its UTC day boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Compare orders batches by date first, then index. It returns -1, 0, or +1.
func (b BatchID) Compare(other BatchID) int {
	switch {
	case b.Date.Before(other.Date):
		return -1
	case b.Date.After(other.Date):
		return 1
	case b.Index < other.Index:
		return -1
	case b.Index > other.Index:
		return 1
	default:
		return 0
	}
}

func (b BatchID) String() string {
	return fmt.Sprintf("%s/%d", b.Date.Format("2006-01-02"), b.Index)
}

// MarketSnapshot is the last-known mirror of one market contract. Pool values
// are exact decimal strings of non-negative integers; they never pass through
// floating point.
type MarketSnapshot struct {
	Address      string    `json:"address"`
	Phase        Phase     `json:"phase"`
	PoolA        string    `json:"pool_a"`
	PoolB        string    `json:"pool_b"`
	Winner       *Side     `json:"winner,omitempty"`
	LockTime     int64     `json:"lock_time"`
	ResolveTime  int64     `json:"resolve_time"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	Batch        BatchID   `json:"batch"`
}

// MarketView is a snapshot plus serving metadata: Cached is true when the
// value was answered from the mirror without a successful synchronous
// refetch, and Stale marks a cached value served past its freshness window
// because a fresher read could not be obtained.
type MarketView struct {
	MarketSnapshot
	Cached bool `json:"cached"`
	Stale  bool `json:"stale"`
}
