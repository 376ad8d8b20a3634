package cache

import (
	"context"
	"time"

	"github.com/webverselabs/webverse/internal/log"
)

// Convergence backoff shape. The remote authority applies effects
// asynchronously relative to the synchronous submission response, so
// the first re-read lands shortly after the mutating call and later
// ones back off up to the cap.
const (
	ConvergeBaseDelay   = 180 * time.Millisecond
	ConvergeMultiplier  = 1.7
	ConvergeMaxDelay    = 1200 * time.Millisecond
	ConvergeMaxAttempts = 6
)

// ConvergeOptions parameterize AwaitConvergence
type ConvergeOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultConvergeOptions returns the standard backoff parameters
func DefaultConvergeOptions() ConvergeOptions {
	return ConvergeOptions{
		MaxAttempts: ConvergeMaxAttempts,
		BaseDelay:   ConvergeBaseDelay,
		MaxDelay:    ConvergeMaxDelay,
		Multiplier:  ConvergeMultiplier,
	}
}

// AwaitConvergence polls with forced (non-cached) reads until the
// predicate holds or attempts are exhausted, backing off between
// attempts. Exhaustion is not an error: a network hiccup must never
// fail a local action that already succeeded, so the caller only
// learns whether convergence was observed.
func AwaitConvergence(ctx context.Context, opts ConvergeOptions, poll func(ctx context.Context) bool) bool {
	if opts.MaxAttempts <= 0 {
		return false
	}
	if opts.Multiplier <= 1 {
		opts.Multiplier = ConvergeMultiplier
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = ConvergeMaxDelay
	}

	delay := opts.BaseDelay
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if poll(ctx) {
			log.Debug("Converged after %d attempt(s)", attempt)
			return true
		}
		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	log.Debug("Convergence not observed within %d attempts", opts.MaxAttempts)
	return false
}
