package batch_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/batch"
	"github.com/arenabets/arenasync/internal/domain"
)

// memVersions is an in-memory domain.BatchVersions over a list of batch IDs.
type memVersions struct {
	batches []domain.BatchID
}

func (v *memVersions) CurrentBatch(context.Context) (domain.BatchID, error) {
	if len(v.batches) == 0 {
		return domain.BatchID{}, domain.ErrNotFound
	}
	best := v.batches[0]
	for _, b := range v.batches[1:] {
		if b.Compare(best) > 0 {
			best = b
		}
	}
	return best, nil
}

func (v *memVersions) MaxIndex(_ context.Context, date time.Time) (int, error) {
	day := domain.Day(date)
	max, found := 0, false
	for _, b := range v.batches {
		if b.Date.Equal(day) && (!found || b.Index > max) {
			max = b.Index
			found = true
		}
	}
	if !found {
		return 0, domain.ErrNotFound
	}
	return max, nil
}

func (v *memVersions) Clear(context.Context) error {
	v.batches = nil
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newManager(markets, leaderboard *memVersions) *batch.Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return batch.NewManager(markets, leaderboard, logger)
}

func TestCurrentPicksGreatestDateThenIndex(t *testing.T) {
	d1, d2 := day("2025-01-14"), day("2025-01-15")
	markets := &memVersions{batches: []domain.BatchID{
		{Date: d1, Index: 0},
		{Date: d1, Index: 1},
		{Date: d2, Index: 0},
	}}
	m := newManager(markets, &memVersions{})

	current, err := m.Current(context.Background(), batch.KindMarkets)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchID{Date: d2, Index: 0}, current)
}

func TestCurrentEmptyCollection(t *testing.T) {
	m := newManager(&memVersions{}, &memVersions{})

	_, err := m.Current(context.Background(), batch.KindMarkets)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNextIndex(t *testing.T) {
	d1 := day("2025-01-14")
	markets := &memVersions{batches: []domain.BatchID{
		{Date: d1, Index: 0},
		{Date: d1, Index: 1},
	}}
	m := newManager(markets, &memVersions{})

	next, err := m.NextIndex(context.Background(), batch.KindMarkets, d1)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	next, err = m.NextIndex(context.Background(), batch.KindMarkets, day("2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, next, "a date with no rows starts at 0")
}

func TestReset(t *testing.T) {
	d1 := day("2025-01-14")
	lb := &memVersions{batches: []domain.BatchID{{Date: d1, Index: 3}}}
	m := newManager(&memVersions{}, lb)

	require.NoError(t, m.Reset(context.Background(), batch.KindLeaderboard))

	next, err := m.NextIndex(context.Background(), batch.KindLeaderboard, d1)
	require.NoError(t, err)
	assert.Equal(t, 0, next)
}

func TestUnknownKind(t *testing.T) {
	m := newManager(&memVersions{}, &memVersions{})

	_, err := m.Current(context.Background(), batch.Kind("bogus"))
	assert.Error(t, err)
}
