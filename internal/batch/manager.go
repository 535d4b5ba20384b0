// Package batch manages "latest batch" semantics for the two versioned
// collections: market deployment imports and leaderboard snapshots. Both are
// keyed by (date truncated to a UTC day, per-date monotonically increasing
// index).
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenabets/arenasync/internal/domain"
)

// Kind names a versioned collection.
type Kind string

const (
	KindMarkets     Kind = "markets"
	KindLeaderboard Kind = "leaderboard"
)

// Manager answers versioning queries for both collections. NextIndex is
// computed fresh on every call and takes no cross-process lock: two
// concurrent imports for the same date can compute the same index. For
// markets the collision is harmless because each row is identified by its
// contract address independently of the batch counter; for leaderboards it
// remains a documented limitation.
type Manager struct {
	collections map[Kind]domain.BatchVersions
	logger      *slog.Logger
}

// NewManager creates a Manager over the two collection stores.
func NewManager(markets, leaderboard domain.BatchVersions, logger *slog.Logger) *Manager {
	return &Manager{
		collections: map[Kind]domain.BatchVersions{
			KindMarkets:     markets,
			KindLeaderboard: leaderboard,
		},
		logger: logger.With(slog.String("component", "batch_manager")),
	}
}

func (m *Manager) collection(kind Kind) (domain.BatchVersions, error) {
	c, ok := m.collections[kind]
	if !ok {
		return nil, fmt.Errorf("batch: unknown collection kind %q", kind)
	}
	return c, nil
}

// Current returns the batch with the greatest (date, index) pair, comparing
// date first. It returns domain.ErrNotFound when the collection is empty.
func (m *Manager) Current(ctx context.Context, kind Kind) (domain.BatchID, error) {
	c, err := m.collection(kind)
	if err != nil {
		return domain.BatchID{}, err
	}
	return c.CurrentBatch(ctx)
}

// NextIndex returns 1 + max(index) among rows sharing date, or 0 when the
// date has no rows yet.
func (m *Manager) NextIndex(ctx context.Context, kind Kind, date time.Time) (int, error) {
	c, err := m.collection(kind)
	if err != nil {
		return 0, err
	}
	max, err := c.MaxIndex(ctx, date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return max + 1, nil
}

// Reset deletes every row of the collection, restarting indexing at 0 for
// today.
func (m *Manager) Reset(ctx context.Context, kind Kind) error {
	c, err := m.collection(kind)
	if err != nil {
		return err
	}
	if err := c.Clear(ctx); err != nil {
		return fmt.Errorf("batch: reset %s: %w", kind, err)
	}
	m.logger.InfoContext(ctx, "collection reset", slog.String("kind", string(kind)))
	return nil
}
