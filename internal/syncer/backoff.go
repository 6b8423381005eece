package syncer

import (
	"math/rand"
	"time"

	"github.com/tork-crm/tork-api/internal/config"
)

// BackoffConfig bounds the delay between delivery attempts
type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		BaseDelay: 2 * time.Second,
		MaxDelay:  5 * time.Minute,
	}
}

// BackoffFromConfig reads the delays from the sync section
func BackoffFromConfig(cfg *config.SyncConfig) BackoffConfig {
	return BackoffConfig{
		BaseDelay: cfg.BaseDelayDuration(),
		MaxDelay:  cfg.MaxDelayDuration(),
	}
}

// NextRetryAt computes the next attempt time using exponential backoff with
// full jitter. attempt is 1-based (1 => up to BaseDelay).
func NextRetryAt(now time.Time, attempt int, cfg BackoffConfig, rng *rand.Rand) time.Time {
	if attempt < 1 {
		attempt = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBackoff().BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultBackoff().MaxDelay
	}

	delay := cfg.MaxDelay
	// shifting past 30 overflows long before any sane MaxDelay
	if attempt <= 30 {
		if d := cfg.BaseDelay << (attempt - 1); d > 0 && d < cfg.MaxDelay {
			delay = d
		}
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(rng.Int63n(int64(delay) + 1))

	return now.Add(jitter).UTC()
}
