package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenabets/arenasync/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `address, phase, pool_a, pool_b, winner,
	lock_time, resolve_time, last_synced_at, batch_date, batch_index`

// Upsert fully replaces the row for the snapshot's address. The last writer
// wins; there is no partial-field merge.
func (s *MarketStore) Upsert(ctx context.Context, m domain.MarketSnapshot) error {
	const query = `
		INSERT INTO markets (
			address, phase, pool_a, pool_b, winner,
			lock_time, resolve_time, last_synced_at, batch_date, batch_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (address) DO UPDATE SET
			phase          = EXCLUDED.phase,
			pool_a         = EXCLUDED.pool_a,
			pool_b         = EXCLUDED.pool_b,
			winner         = EXCLUDED.winner,
			lock_time      = EXCLUDED.lock_time,
			resolve_time   = EXCLUDED.resolve_time,
			last_synced_at = EXCLUDED.last_synced_at,
			batch_date     = EXCLUDED.batch_date,
			batch_index    = EXCLUDED.batch_index`

	var winner *string
	if m.Winner != nil {
		w := string(*m.Winner)
		winner = &w
	}

	_, err := s.pool.Exec(ctx, query,
		m.Address, string(m.Phase), m.PoolA, m.PoolB, winner,
		m.LockTime, m.ResolveTime, m.LastSyncedAt, m.Batch.Date, m.Batch.Index,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.Address, err)
	}
	return nil
}

func scanMarket(row pgx.Row) (domain.MarketSnapshot, error) {
	var (
		m      domain.MarketSnapshot
		phase  string
		winner *string
	)
	err := row.Scan(
		&m.Address, &phase, &m.PoolA, &m.PoolB, &winner,
		&m.LockTime, &m.ResolveTime, &m.LastSyncedAt, &m.Batch.Date, &m.Batch.Index,
	)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	m.Phase = domain.Phase(phase)
	if winner != nil {
		side := domain.Side(*winner)
		m.Winner = &side
	}
	m.Batch.Date = m.Batch.Date.UTC()
	return m, nil
}

// Get retrieves a market snapshot by contract address.
func (s *MarketStore) Get(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE address = $1`, address)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("postgres: get market %s: %w", address, err)
	}
	return m, nil
}

// ListByBatch returns the snapshots imported under the given batch.
func (s *MarketStore) ListByBatch(ctx context.Context, batch domain.BatchID) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets
		 WHERE batch_date = $1 AND batch_index = $2
		 ORDER BY address`,
		batch.Date, batch.Index)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets batch %s: %w", batch, err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

// ListAll returns every stored snapshot regardless of batch.
func (s *MarketStore) ListAll(ctx context.Context) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func collectMarkets(rows pgx.Rows) ([]domain.MarketSnapshot, error) {
	var out []domain.MarketSnapshot
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: market rows: %w", err)
	}
	return out, nil
}

// CurrentBatch returns the greatest (date, index) pair among stored markets.
func (s *MarketStore) CurrentBatch(ctx context.Context) (domain.BatchID, error) {
	return currentBatch(ctx, s.pool, "markets")
}

// MaxIndex returns the greatest batch index for the given date.
func (s *MarketStore) MaxIndex(ctx context.Context, date time.Time) (int, error) {
	return maxIndex(ctx, s.pool, "markets", date)
}

// Clear deletes all market rows. Used only by the explicit collection reset.
func (s *MarketStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM markets`); err != nil {
		return fmt.Errorf("postgres: clear markets: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
