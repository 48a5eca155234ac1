// Package retry provides bounded exponential backoff for transient
// failures at external call sites.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Temporary indicates if an error condition is temporary and may succeed
// if retried.
type Temporary interface {
	Temporary() bool
}

// IsTemporary checks if the provided error implements the Temporary
// interface and reports retryability.
func IsTemporary(err error) bool {
	var temp Temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}

// Retrier executes functions with exponential backoff and jitter.
// Non-temporary errors abort immediately.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
}

// New builds a Retrier. maxAttempts includes the first try.
func New(maxAttempts int, baseDelay, maxDelay time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		jitter:      0.5,
	}
}

// Run executes fn until it succeeds, returns a non-temporary error, the
// attempt budget runs out, or the context is cancelled.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsTemporary(err) {
			return err
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
	return fmt.Errorf("max retry attempts reached: %w", err)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if d > float64(r.maxDelay) {
		d = float64(r.maxDelay)
	}
	d += rand.Float64() * r.jitter * d
	return time.Duration(d)
}
