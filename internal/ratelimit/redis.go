package ratelimit

import (
	"context"
	"fmt"
	"time"

	"smashrank/internal/metrics"
	"smashrank/internal/retry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// slidingWindowScript trims calls older than the window from a sorted set and
// either records a new call (returns 0) or returns the milliseconds until the
// oldest recorded call expires.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return 0
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
	wait = 1
end
return wait
`)

// RedisWindow is a sliding window shared by every process that uses the same
// Redis key, so several binaries can draw on one API key's budget.
type RedisWindow struct {
	rdb    redis.Scripter
	key    string
	limit  int
	window time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRedisWindow creates a Redis-backed limiter of limit calls per window
func NewRedisWindow(rdb redis.Scripter, key string, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{
		rdb:    rdb,
		key:    key,
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  retry.Sleep,
	}
}

// Acquire blocks until the shared window has room and records the call
func (l *RedisWindow) Acquire(ctx context.Context) error {
	var waited time.Duration
	for {
		now := l.now().UnixMilli()
		wait, err := slidingWindowScript.Run(ctx, l.rdb, []string{l.key},
			now, l.window.Milliseconds(), l.limit, uuid.New().String(),
		).Int64()
		if err != nil {
			return fmt.Errorf("failed to acquire rate limit slot: %w", err)
		}

		if wait <= 0 {
			if waited > 0 {
				metrics.RecordRateLimitWait(waited.Seconds())
			}
			return nil
		}

		d := time.Duration(wait) * time.Millisecond
		log.Debug().
			Str("key", l.key).
			Dur("wait", d).
			Msg("Shared rate limit window full, waiting")

		if err := l.sleep(ctx, d); err != nil {
			return err
		}
		waited += d
	}
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}
