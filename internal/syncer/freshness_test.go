package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFreshStrictThreshold(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	p := NewFreshnessPolicy(30 * time.Second)
	p.now = func() time.Time { return now }

	assert.True(t, p.IsFresh(now), "zero age is fresh")
	assert.True(t, p.IsFresh(now.Add(-29*time.Second)))
	assert.True(t, p.IsFresh(now.Add(-30*time.Second+time.Nanosecond)))
	assert.False(t, p.IsFresh(now.Add(-30*time.Second)), "exactly the threshold is stale")
	assert.False(t, p.IsFresh(now.Add(-31*time.Second)))
}

func TestNewFreshnessPolicyDefault(t *testing.T) {
	assert.Equal(t, DefaultFreshnessThreshold, NewFreshnessPolicy(0).Threshold())
	assert.Equal(t, DefaultFreshnessThreshold, NewFreshnessPolicy(-time.Second).Threshold())
	assert.Equal(t, 5*time.Second, NewFreshnessPolicy(5*time.Second).Threshold())
}
