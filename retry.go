package weft

import "time"

// RetryBuilder provides a fluent way to construct RetryConfig values
// for use with FlowBuilder.NodeWithRetry.
type RetryBuilder struct {
	cfg RetryConfig
}

// Retry creates a RetryBuilder with the given maxAttempts, the total
// attempt budget including the first call.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{
		cfg: RetryConfig{
			MaxAttempts: maxAttempts,
		},
	}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, the default cap applies.
//
// Example:
//
//	Retry(3).WithExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second)
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) RetryBuilder {
	c := r.cfg
	c.InitialDelayMs = int(initial.Milliseconds())
	c.MaxDelayMs = int(max.Milliseconds())
	if multiplier <= 0 {
		multiplier = 2.0
	}
	c.BackoffMultiplier = multiplier
	return RetryBuilder{cfg: c}
}

// WithConstantBackoff configures a constant delay between retries.
//
// This is equivalent to an exponential backoff with multiplier 1.0.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	c := r.cfg
	c.InitialDelayMs = int(delay.Milliseconds())
	c.MaxDelayMs = int(delay.Milliseconds())
	c.BackoffMultiplier = 1.0
	return RetryBuilder{cfg: c}
}

// Config returns the underlying RetryConfig to be passed to
// FlowBuilder.NodeWithRetry.
func (r RetryBuilder) Config() RetryConfig {
	return r.cfg
}
