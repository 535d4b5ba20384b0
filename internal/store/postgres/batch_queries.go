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

// currentBatch finds the greatest (batch_date, batch_index) pair in table,
// comparing date first. Both batched tables share the same column pair.
func currentBatch(ctx context.Context, pool *pgxpool.Pool, table string) (domain.BatchID, error) {
	query := fmt.Sprintf(
		`SELECT batch_date, batch_index FROM %s
		 ORDER BY batch_date DESC, batch_index DESC LIMIT 1`, table)

	var b domain.BatchID
	err := pool.QueryRow(ctx, query).Scan(&b.Date, &b.Index)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BatchID{}, domain.ErrNotFound
		}
		return domain.BatchID{}, fmt.Errorf("postgres: current batch of %s: %w", table, err)
	}
	b.Date = b.Date.UTC()
	return b, nil
}

// maxIndex finds the greatest batch_index among rows of table sharing date.
// It returns domain.ErrNotFound when the date has no rows.
func maxIndex(ctx context.Context, pool *pgxpool.Pool, table string, date time.Time) (int, error) {
	query := fmt.Sprintf(
		`SELECT batch_index FROM %s WHERE batch_date = $1
		 ORDER BY batch_index DESC LIMIT 1`, table)

	var idx int
	err := pool.QueryRow(ctx, query, domain.Day(date)).Scan(&idx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: max index of %s: %w", table, err)
	}
	return idx, nil
}
