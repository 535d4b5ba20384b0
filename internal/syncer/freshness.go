// Package syncer mirrors authoritative ledger state into the local stores:
// it decides when a mirrored snapshot is stale, refreshes entities on demand
// and over full sweeps, and serves the best available value when a fresher
// read cannot be obtained.
package syncer

import "time"

// DefaultFreshnessThreshold is the TTL applied when none is configured.
const DefaultFreshnessThreshold = 30 * time.Second

// FreshnessPolicy decides whether a mirrored snapshot is trustworthy without
// a refetch. A snapshot aged exactly to the threshold is already stale.
type FreshnessPolicy struct {
	threshold time.Duration
	now       func() time.Time
}

// NewFreshnessPolicy creates a policy with the given threshold; non-positive
// values fall back to the 30s default.
func NewFreshnessPolicy(threshold time.Duration) *FreshnessPolicy {
	if threshold <= 0 {
		threshold = DefaultFreshnessThreshold
	}
	return &FreshnessPolicy{threshold: threshold, now: time.Now}
}

// IsFresh reports whether a snapshot synced at lastSyncedAt is still inside
// the freshness window. The comparison is strict: at exactly the threshold
// the snapshot is stale.
func (p *FreshnessPolicy) IsFresh(lastSyncedAt time.Time) bool {
	return p.now().Sub(lastSyncedAt) < p.threshold
}

// Threshold returns the configured TTL window.
func (p *FreshnessPolicy) Threshold() time.Duration {
	return p.threshold
}
