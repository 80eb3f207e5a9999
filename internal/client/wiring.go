package client

import (
	"context"
	"fmt"

	"smashrank/internal/config"
	"smashrank/internal/ratelimit"
	"smashrank/internal/retry"

	"github.com/rs/zerolog/log"
)

// NewFromConfig builds a client with the configured limiter backend and retry
// policy. The returned close function releases the Redis connection, if any.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, func(), error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case "redis":
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect rate limit backend: %w", err)
		}
		closeFn = func() { rdb.Close() }
		limiter = ratelimit.NewRedisWindow(rdb, cfg.RateLimitRedisKey, cfg.RateLimitCalls, cfg.RateLimitWindow)
	default:
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimitCalls, cfg.RateLimitWindow)
	}

	log.Info().
		Str("backend", cfg.RateLimitBackend).
		Int("calls", cfg.RateLimitCalls).
		Dur("window", cfg.RateLimitWindow).
		Msg("Rate limiter initialized")

	policy := retry.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Jitter:      retry.HalfJitter,
	}

	return NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.APITimeout, limiter, policy), closeFn, nil
}
