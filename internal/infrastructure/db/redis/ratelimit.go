package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagramstudio/diagram-api/internal/core/ports"
)

// counter is the subset of *redis.Client the limiter needs.
type counter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// FixedWindowLimiter counts hits per key in fixed windows. The increment and
// the expiry go out in one MULTI/EXEC so a counter never outlives its window.
// Key format: ratelimit:<key>:<window_start_unix>
type FixedWindowLimiter struct {
	client counter
	now    func() time.Time
}

// NewFixedWindowLimiter creates a limiter on top of client.
func NewFixedWindowLimiter(client counter) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, now: time.Now}
}

var _ ports.RateLimiter = (*FixedWindowLimiter)(nil)

// Allow records one hit for key and reports whether it is within limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (ports.RateDecision, error) {
	if limit <= 0 || window <= 0 {
		return ports.RateDecision{}, fmt.Errorf("rate limit: invalid limit %d per %s", limit, window)
	}

	start := l.now().Truncate(window)
	reset := start.Add(window)
	k := fmt.Sprintf("ratelimit:%s:%d", key, start.Unix())

	var incr *redis.IntCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireAt(ctx, k, reset)
		return nil
	}); err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit: %w", err)
	}
	n := incr.Val()

	remaining := limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateDecision{
		Allowed:   n <= int64(limit),
		Remaining: remaining,
		ResetAt:   reset,
	}, nil
}
