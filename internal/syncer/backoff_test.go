package syncer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRetryAt_Bounds(t *testing.T) {
	cfg := BackoffConfig{BaseDelay: time.Second, MaxDelay: time.Minute}
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		attempt int
		max     time.Duration
	}{
		{attempt: 0, max: time.Second},
		{attempt: 1, max: time.Second},
		{attempt: 2, max: 2 * time.Second},
		{attempt: 6, max: 32 * time.Second},
		{attempt: 10, max: time.Minute},
		{attempt: 200, max: time.Minute},
	}
	for _, tt := range tests {
		next := NextRetryAt(now, tt.attempt, cfg, rand.New(rand.NewSource(1)))
		assert.False(t, next.Before(now), "attempt %d", tt.attempt)
		assert.False(t, next.After(now.Add(tt.max)), "attempt %d: %s", tt.attempt, next.Sub(now))
		assert.Equal(t, time.UTC, next.Location())
	}
}

func TestNextRetryAt_ZeroConfigUsesDefaults(t *testing.T) {
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)

	next := NextRetryAt(now, 1, BackoffConfig{}, rand.New(rand.NewSource(7)))

	assert.False(t, next.After(now.Add(DefaultBackoff().BaseDelay)))
}
