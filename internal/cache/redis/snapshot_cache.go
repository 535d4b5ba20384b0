package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arenabets/arenasync/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache with JSON-serialized market
// snapshots. Entries carry a TTL matched to the freshness threshold so the
// hot mirror cannot outlive the staleness window by much; the persistent
// store remains the value of record.
//
// Key schema:
//
//	snapshot:market:{address} - JSON-encoded domain.MarketSnapshot
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client. ttl
// should be at least the freshness threshold.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(address string) string { return "snapshot:market:" + address }

// Set stores a snapshot under its contract address.
func (sc *SnapshotCache) Set(ctx context.Context, m domain.MarketSnapshot) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", m.Address, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(m.Address), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", m.Address, err)
	}
	return nil
}

// Get retrieves a snapshot by contract address. It returns domain.ErrNotFound
// when the key does not exist or has expired.
func (sc *SnapshotCache) Get(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get snapshot %s: %w", address, err)
	}

	var m domain.MarketSnapshot
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", address, err)
	}
	return m, nil
}

// Invalidate removes the snapshot for the given address.
func (sc *SnapshotCache) Invalidate(ctx context.Context, address string) error {
	if err := sc.rdb.Del(ctx, snapshotKey(address)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %s: %w", address, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
