// Package backoff computes per-node retry delays from a RetryConfig.
package backoff

import (
	"time"

	"github.com/weftlabs/weft/pkg/api"
)

const (
	defaultInitialDelay = 1000 * time.Millisecond
	defaultMultiplier   = 2.0
	defaultMaxDelay     = 30000 * time.Millisecond
)

// Policy is a normalized retry policy with defaults applied.
type Policy struct {
	MaxAttempts int // total attempts, >= 1
	Initial     time.Duration
	Multiplier  float64
	Max         time.Duration
}

// FromConfig normalizes cfg into a Policy. A nil cfg, or MaxAttempts <= 0,
// means a single attempt and no retries. MaxAttempts in the config counts
// total attempts including the first, matching the node schema.
func FromConfig(cfg *api.RetryConfig) Policy {
	p := Policy{
		MaxAttempts: 1,
		Initial:     defaultInitialDelay,
		Multiplier:  defaultMultiplier,
		Max:         defaultMaxDelay,
	}
	if cfg == nil {
		return p
	}
	if cfg.MaxAttempts > 1 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelayMs > 0 {
		p.Initial = time.Duration(cfg.InitialDelayMs) * time.Millisecond
	}
	if cfg.BackoffMultiplier > 0 {
		p.Multiplier = cfg.BackoffMultiplier
	}
	if cfg.MaxDelayMs > 0 {
		p.Max = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	return p
}

// Delay returns the wait applied before attempt n (1-indexed). The first
// attempt never waits; attempt n > 1 waits
// min(Initial * Multiplier^(n-2), Max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.Initial)
	for i := 2; i < attempt; i++ {
		d *= p.Multiplier
		if p.Max > 0 && d >= float64(p.Max) {
			return p.Max
		}
	}
	delay := time.Duration(d)
	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}
	return delay
}
