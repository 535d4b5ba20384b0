package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenabets/arenasync/internal/domain"
)

// BalanceStore implements domain.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *pgxpool.Pool
}

// NewBalanceStore creates a BalanceStore backed by the given connection pool.
func NewBalanceStore(pool *pgxpool.Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Upsert fully replaces the balance row for the user.
func (s *BalanceStore) Upsert(ctx context.Context, b domain.UserBalance) error {
	const query = `
		INSERT INTO user_balances (user_address, balance, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_address) DO UPDATE SET
			balance        = EXCLUDED.balance,
			last_synced_at = EXCLUDED.last_synced_at`

	if _, err := s.pool.Exec(ctx, query, b.User, b.Balance, b.LastSyncedAt); err != nil {
		return fmt.Errorf("postgres: upsert balance %s: %w", b.User, err)
	}
	return nil
}

// Get retrieves the balance row for the user.
func (s *BalanceStore) Get(ctx context.Context, user string) (domain.UserBalance, error) {
	const query = `
		SELECT user_address, balance, last_synced_at
		FROM user_balances WHERE user_address = $1`

	var b domain.UserBalance
	err := s.pool.QueryRow(ctx, query, user).Scan(&b.User, &b.Balance, &b.LastSyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserBalance{}, domain.ErrNotFound
		}
		return domain.UserBalance{}, fmt.Errorf("postgres: get balance %s: %w", user, err)
	}
	return b, nil
}

// Compile-time interface check.
var _ domain.BalanceStore = (*BalanceStore)(nil)
