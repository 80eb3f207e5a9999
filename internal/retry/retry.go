// Package retry runs an operation again after transient failures, waiting an
// exponentially growing, capped and jittered delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Policy describes how an operation is retried
type Policy struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter returns extra delay for a nominal delay d. It must return a
	// value in [0, d/2) for delays to stay non-decreasing.
	Jitter func(d time.Duration) time.Duration

	// Retryable reports whether an error is worth another attempt
	Retryable func(err error) bool

	// Sleep blocks for d; it defaults to a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
}

// Event describes one backoff before a retry
type Event struct {
	Attempt int
	Delay   time.Duration
	Elapsed time.Duration
	Err     error
}

// ExhaustedError is returned when every attempt failed
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// HalfJitter adds a uniformly random delay in [0, d/2)
func HalfJitter(d time.Duration) time.Duration {
	half := int64(d / 2)
	if half <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(half))
}

// Delay returns the wait before retry number attempt (0 for the first retry):
// min(MaxDelay, BaseDelay*2^attempt + jitter)
func (p Policy) Delay(attempt int) time.Duration {
	nominal := p.MaxDelay
	if attempt < 62 {
		if d := p.BaseDelay << uint(attempt); d > 0 && d < p.MaxDelay {
			nominal = d
		}
	}

	delay := nominal
	if p.Jitter != nil {
		delay += p.Jitter(nominal)
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Do calls op until it succeeds, returns a non-retryable error, the context
// ends, or MaxAttempts is reached. onBackoff, when set, is called before each
// wait.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, onBackoff func(Event)) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ctxErr, err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt+1 >= maxAttempts {
			return &ExhaustedError{Attempts: attempt + 1, Err: err}
		}

		delay := p.Delay(attempt)
		if onBackoff != nil {
			onBackoff(Event{
				Attempt: attempt + 1,
				Delay:   delay,
				Elapsed: time.Since(start),
				Err:     err,
			})
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
