// Package limiter provides Redis-backed request rate limiting.
package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	redispkg "github.com/whatisboom/blendroom-sub001/pkg/redis"
)

// incrWithExpire increments a window counter and sets its TTL on the first
// increment of the window, atomically. Separate INCR and EXPIRE calls can
// leak a counter with no TTL if the client dies between them.
var incrWithExpire = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter counts requests per key in fixed windows stored in Redis.
type RateLimiter struct {
	client *redispkg.Client
}

// NewRateLimiter creates a rate limiter on the given Redis client.
func NewRateLimiter(client *redispkg.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether one more request fits under limit for the window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	result, err := incrWithExpire.Run(ctx, rl.client.Universal(), []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	return result <= limit, nil
}

// Remaining returns how many requests are left in the current window.
func (rl *RateLimiter) Remaining(ctx context.Context, key string, limit int64) (int64, error) {
	count, err := rl.client.Get(ctx, key)
	if err == redispkg.ErrKeyNotFound {
		return limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	current, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid counter value: %w", err)
	}
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter for a key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if err := rl.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to reset counter: %w", err)
	}
	return nil
}

// TTL returns the time until the current window expires.
func (rl *RateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := rl.client.TTL(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to get TTL: %w", err)
	}
	return ttl, nil
}

// IPRateLimiter limits requests per client IP.
type IPRateLimiter struct {
	limiter *RateLimiter
	limit   int64
	window  time.Duration
}

// NewIPRateLimiter creates an IP rate limiter with a fixed limit and window.
func NewIPRateLimiter(client *redispkg.Client, limit int64, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{limiter: NewRateLimiter(client), limit: limit, window: window}
}

// Allow reports whether a request from the IP is within the limit.
func (ipl *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	key := redispkg.RateLimitKey("ip", ip, "minute")
	return ipl.limiter.Allow(ctx, key, ipl.limit, ipl.window)
}

// UserRateLimiter limits requests per authenticated user.
type UserRateLimiter struct {
	limiter *RateLimiter
	limit   int64
	window  time.Duration
}

// NewUserRateLimiter creates a user rate limiter with a fixed limit and window.
func NewUserRateLimiter(client *redispkg.Client, limit int64, window time.Duration) *UserRateLimiter {
	return &UserRateLimiter{limiter: NewRateLimiter(client), limit: limit, window: window}
}

// Allow reports whether a request from the user is within the limit.
func (url *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := redispkg.RateLimitKey("user", userID, "minute")
	return url.limiter.Allow(ctx, key, url.limit, url.window)
}
