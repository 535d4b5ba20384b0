package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenabets/arenasync/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *pgxpool.Pool
}

// NewClaimStore creates a ClaimStore backed by the given connection pool.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Upsert fully replaces the claim row for (market, user), creating it on
// first access.
func (s *ClaimStore) Upsert(ctx context.Context, c domain.UserClaim) error {
	const query = `
		INSERT INTO user_claims (
			market_address, user_address, a_claims, b_claims, redeemed, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (market_address, user_address) DO UPDATE SET
			a_claims       = EXCLUDED.a_claims,
			b_claims       = EXCLUDED.b_claims,
			redeemed       = EXCLUDED.redeemed,
			last_synced_at = EXCLUDED.last_synced_at`

	_, err := s.pool.Exec(ctx, query,
		c.Market, c.User, c.AClaims, c.BClaims, c.Redeemed, c.LastSyncedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert claim %s/%s: %w", c.Market, c.User, err)
	}
	return nil
}

// Get retrieves the claim row for (market, user).
func (s *ClaimStore) Get(ctx context.Context, market, user string) (domain.UserClaim, error) {
	const query = `
		SELECT market_address, user_address, a_claims, b_claims, redeemed, last_synced_at
		FROM user_claims WHERE market_address = $1 AND user_address = $2`

	var c domain.UserClaim
	err := s.pool.QueryRow(ctx, query, market, user).Scan(
		&c.Market, &c.User, &c.AClaims, &c.BClaims, &c.Redeemed, &c.LastSyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserClaim{}, domain.ErrNotFound
		}
		return domain.UserClaim{}, fmt.Errorf("postgres: get claim %s/%s: %w", market, user, err)
	}
	return c, nil
}

// Compile-time interface check.
var _ domain.ClaimStore = (*ClaimStore)(nil)
