// Package retry runs an operation under a bounded attempt budget with
// exponential backoff, retrying only errors the caller classifies as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes when and how often an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// InitialBackoff is the wait after the first failure; it doubles after each further failure.
	InitialBackoff time.Duration
	// Retryable reports whether err is worth another attempt.
	Retryable func(err error) bool
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Backoff returns the wait before attempt n+1, n starting at 0.
func (p Policy) Backoff(n int) time.Duration {
	return p.InitialBackoff << n
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for n := 0; n < attempts; n++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
		if n == attempts-1 {
			break
		}
		if serr := sleep(ctx, p.Backoff(n)); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
