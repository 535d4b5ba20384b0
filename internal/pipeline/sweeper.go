package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenabets/arenasync/internal/domain"
)

const sweepLockKey = "sweep"

// StateSweeper walks every mirrored market and refreshes it.
type StateSweeper interface {
	Sweep(ctx context.Context) domain.SweepReport
}

// Sweeper runs periodic full sweeps. A distributed lock keeps concurrent
// service instances from sweeping the same ledger at once.
type Sweeper struct {
	sweeper  StateSweeper
	locks    domain.LockManager
	archiver *ReportArchiver
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A nil lock manager disables locking, which
// is only sensible for single-instance deployments.
func NewSweeper(
	sweeper StateSweeper,
	locks domain.LockManager,
	archiver *ReportArchiver,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		sweeper:  sweeper,
		locks:    locks,
		archiver: archiver,
		interval: interval,
		logger:   logger,
	}
}

// Run executes a single guarded sweep. When another instance holds the
// lock the cycle is skipped without error; that instance is already doing
// the work.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, sweepLockKey, s.lockTTL())
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.Debug("sweep lock held elsewhere, skipping cycle")
			return nil
		}
		if err != nil {
			return fmt.Errorf("acquiring sweep lock: %w", err)
		}
		defer unlock()
	}

	report := s.sweeper.Sweep(ctx)
	if err := s.archiver.Archive(ctx, report); err != nil {
		s.logger.Error("sweep report archival failed",
			slog.String("sweep_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// RunLoop runs sweeps on a repeating interval until the context is
// cancelled. The first sweep fires immediately on start.
func (s *Sweeper) RunLoop(ctx context.Context) error {
	if err := s.Run(ctx); err != nil {
		s.logger.Error("sweep failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// lockTTL bounds how long a crashed instance can starve its peers. The
// lock must outlive a normal sweep, so it is tied to the loop interval.
func (s *Sweeper) lockTTL() time.Duration {
	ttl := 2 * s.interval
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}
