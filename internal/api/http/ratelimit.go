package http

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	// Allow records one hit for key. When the window is exhausted it returns
	// false and the time until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RedisRateLimiter implements RateLimiter with INCR and EXPIRE.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisRateLimiter allows limit hits per window for each key.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: int64(limit), window: window}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := fmt.Sprintf("ratelimit:api:%s", key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return true, 0, fmt.Errorf("increment rate counter: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, k, r.window)
	}
	if count <= r.limit {
		return true, 0, nil
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// a key without expiry would block the client forever
		r.client.Expire(ctx, k, r.window)
		ttl = r.window
	}
	return false, ttl, nil
}

// RateLimit rejects clients over budget with RATE_LIMIT_EXCEEDED. Limiter
// failures let the request through.
func RateLimit(limiter RateLimiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		allowed, retryAfter, err := limiter.Allow(c.UserContext(), clientIP(c))
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return apperrors.NewRateLimited(seconds)
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}
