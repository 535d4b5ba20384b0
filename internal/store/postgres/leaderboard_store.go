package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenabets/arenasync/internal/domain"
)

// LeaderboardStore implements domain.LeaderboardStore using PostgreSQL.
type LeaderboardStore struct {
	pool *pgxpool.Pool
}

// NewLeaderboardStore creates a LeaderboardStore backed by the given pool.
func NewLeaderboardStore(pool *pgxpool.Pool) *LeaderboardStore {
	return &LeaderboardStore{pool: pool}
}

// ReplaceGroup atomically replaces the whole (date, index) group: any rows
// already stored for the batch are deleted before the new set is inserted,
// so a retried submission lands exactly one copy.
func (s *LeaderboardStore) ReplaceGroup(ctx context.Context, batch domain.BatchID, entries []domain.LeaderboardEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: replace leaderboard %s: begin: %w", batch, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`DELETE FROM leaderboard_entries WHERE batch_date = $1 AND batch_index = $2`,
		batch.Date, batch.Index,
	); err != nil {
		return fmt.Errorf("postgres: replace leaderboard %s: delete: %w", batch, err)
	}

	pgBatch := &pgx.Batch{}
	const insert = `
		INSERT INTO leaderboard_entries (batch_date, batch_index, rank, name, score, logo_url)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range entries {
		pgBatch.Queue(insert, batch.Date, batch.Index, e.Rank, e.Name, e.Score, e.LogoURL)
	}

	br := tx.SendBatch(ctx, pgBatch)
	for i := range entries {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: replace leaderboard %s: insert row %d: %w", batch, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: replace leaderboard %s: close batch: %w", batch, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: replace leaderboard %s: commit: %w", batch, err)
	}
	return nil
}

// ListByBatch returns the entries of one (date, index) group ordered by rank.
func (s *LeaderboardStore) ListByBatch(ctx context.Context, batch domain.BatchID) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch_date, batch_index, rank, name, score, logo_url
		 FROM leaderboard_entries
		 WHERE batch_date = $1 AND batch_index = $2
		 ORDER BY rank`,
		batch.Date, batch.Index)
	if err != nil {
		return nil, fmt.Errorf("postgres: list leaderboard %s: %w", batch, err)
	}
	defer rows.Close()

	var out []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Batch.Date, &e.Batch.Index, &e.Rank, &e.Name, &e.Score, &e.LogoURL); err != nil {
			return nil, fmt.Errorf("postgres: scan leaderboard entry: %w", err)
		}
		e.Batch.Date = e.Batch.Date.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return out, nil
}

// CurrentBatch returns the greatest (date, index) pair among stored entries.
func (s *LeaderboardStore) CurrentBatch(ctx context.Context) (domain.BatchID, error) {
	return currentBatch(ctx, s.pool, "leaderboard_entries")
}

// MaxIndex returns the greatest batch index for the given date.
func (s *LeaderboardStore) MaxIndex(ctx context.Context, date time.Time) (int, error) {
	return maxIndex(ctx, s.pool, "leaderboard_entries", date)
}

// Clear deletes all leaderboard rows, restarting indexing at 0.
func (s *LeaderboardStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM leaderboard_entries`); err != nil {
		return fmt.Errorf("postgres: clear leaderboard: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardStore = (*LeaderboardStore)(nil)
