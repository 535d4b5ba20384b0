package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenabets/arenasync/internal/domain"
)

type countingSweeper struct {
	calls int
}

func (c *countingSweeper) Sweep(ctx context.Context) domain.SweepReport {
	c.calls++
	return domain.SweepReport{
		ID:        "sweep-1",
		StartedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		Total:     3,
		Updated:   3,
	}
}

type fakeLocks struct {
	err      error
	acquired int
	released int
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	return func() { f.released++ }, nil
}

type capturingBlobs struct {
	keys []string
	body []byte
}

func (c *capturingBlobs) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	c.keys = append(c.keys, path)
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(data)
	c.body = buf.Bytes()
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeperRunArchivesReport(t *testing.T) {
	sweeps := &countingSweeper{}
	locks := &fakeLocks{}
	blobs := &capturingBlobs{}
	s := NewSweeper(sweeps, locks, NewReportArchiver(blobs, discardLogger()), time.Minute, discardLogger())

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, sweeps.calls)
	assert.Equal(t, 1, locks.acquired)
	assert.Equal(t, 1, locks.released, "the sweep lock is released after the run")
	require.Len(t, blobs.keys, 1)
	assert.Equal(t, "sweeps/2025/01/15/sweep-1.json", blobs.keys[0])
	assert.Contains(t, string(blobs.body), `"updated":3`)
}

func TestSweeperSkipsWhenLockHeld(t *testing.T) {
	sweeps := &countingSweeper{}
	locks := &fakeLocks{err: domain.ErrLockHeld}
	s := NewSweeper(sweeps, locks, NewReportArchiver(nil, discardLogger()), time.Minute, discardLogger())

	require.NoError(t, s.Run(context.Background()), "a held lock is not an error")
	assert.Equal(t, 0, sweeps.calls)
}

func TestSweeperRunsUnlockedWithoutManager(t *testing.T) {
	sweeps := &countingSweeper{}
	s := NewSweeper(sweeps, nil, NewReportArchiver(nil, discardLogger()), time.Minute, discardLogger())

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, sweeps.calls)
}
