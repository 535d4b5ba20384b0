package domain

import (
	"context"
	"time"
)

// SnapshotCache is the hot mirror in front of the persistent market store.
// Entries expire on their own; freshness decisions live in the sync layer.
type SnapshotCache interface {
	Set(ctx context.Context, m MarketSnapshot) error
	Get(ctx context.Context, address string) (MarketSnapshot, error)
	Invalidate(ctx context.Context, address string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking, used to keep concurrent service
// instances from sweeping at the same time.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of refresh events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
