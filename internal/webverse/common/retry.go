// Package common holds small shared helpers
package common

import (
	"context"
	"fmt"
	"time"
)

// RetryHandler handles connection-level retry with exponential
// backoff. This is the short retry used on individual HTTP calls, not
// the convergence polling loop.
type RetryHandler struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// NewRetryHandler creates a retry handler
func NewRetryHandler(maxRetries int, baseDelay, maxDelay time.Duration) *RetryHandler {
	return &RetryHandler{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
		Multiplier: 1.6,
	}
}

// Execute runs fn, retrying on error until the attempt budget runs out
func (r *RetryHandler) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.calculateDelay(attempt)):
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("operation failed after %d attempts: %w", r.MaxRetries+1, lastErr)
}

func (r *RetryHandler) calculateDelay(attempt int) time.Duration {
	multiplier := r.Multiplier
	if multiplier <= 1 {
		multiplier = 1.6
	}
	delay := float64(r.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= multiplier
	}
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}
