package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica.
//
// Each key gets one counter per window; the first hit in a window sets its
// expiry. The limit is Limit requests per Window.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int64
	Window time.Duration
	Prefix string

	now func() time.Time
}

// NewRedisLimiter derives a per-second window from the token bucket settings
// so both backends accept roughly the same traffic.
func NewRedisLimiter(client *redis.Client, rps float64, burst int) *RedisLimiter {
	limit := int64(rps)
	if int64(burst) > limit {
		limit = int64(burst)
	}
	if limit < 1 {
		limit = 1
	}
	return &RedisLimiter{Client: client, Limit: limit, Window: time.Second, Prefix: "ratelimit"}
}

// Allow implements Limiter.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	window := r.Window
	if window <= 0 {
		window = time.Second
	}
	slot := now().UnixNano() / int64(window)
	k := fmt.Sprintf("%s:%s:%d", r.Prefix, key, slot)

	pipe := r.Client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val() <= r.Limit, nil
}
