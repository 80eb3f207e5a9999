// Package ratelimit bounds the number of API calls made in any window of time.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"smashrank/internal/metrics"
	"smashrank/internal/retry"

	"github.com/rs/zerolog/log"
)

// Limiter hands out call slots. Acquire blocks until a slot is available or
// the context is done.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// SlidingWindow allows at most Limit calls in any window of length Window.
// It keeps the start times of the most recent calls and makes a caller wait
// until the oldest of them leaves the window.
type SlidingWindow struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	calls []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customises a SlidingWindow
type Option func(*SlidingWindow)

// WithClock replaces the wall clock and the blocking wait, for tests
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *SlidingWindow) {
		l.now = now
		l.sleep = sleep
	}
}

// NewSlidingWindow creates an in-process limiter of limit calls per window
func NewSlidingWindow(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	l := &SlidingWindow{
		limit:  limit,
		window: window,
		calls:  make([]time.Time, 0, limit),
		now:    time.Now,
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until a call slot is free and consumes it
func (l *SlidingWindow) Acquire(ctx context.Context) error {
	var waited time.Duration
	for {
		wait := l.tryAcquire()
		if wait <= 0 {
			if waited > 0 {
				metrics.RecordRateLimitWait(waited.Seconds())
			}
			return nil
		}

		log.Debug().
			Dur("wait", wait).
			Int("limit", l.limit).
			Dur("window", l.window).
			Msg("Rate limit window full, waiting")

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		waited += wait
	}
}

// tryAcquire records a call and returns zero, or returns how long to wait
func (l *SlidingWindow) tryAcquire() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	expired := 0
	for expired < len(l.calls) && !l.calls[expired].After(cutoff) {
		expired++
	}
	if expired > 0 {
		l.calls = append(l.calls[:0], l.calls[expired:]...)
	}

	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return 0
	}

	return l.calls[0].Sub(cutoff)
}
