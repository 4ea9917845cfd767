package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apperrors "github.com/wintergreen/academia-backend/internal/errors"
	"github.com/wintergreen/academia-backend/internal/metrics"
	rediswindow "github.com/wintergreen/academia-backend/pkg/redis"
)

const rateLimitPrefix = "rl"

// RateLimiter counts requests per client IP and scope in fixed redis windows.
// With no client, or when redis errors, requests pass through.
type RateLimiter struct {
	rdb     redis.Scripter
	window  time.Duration
	metrics *metrics.Metrics
}

// NewRateLimiter accepts a nil client, which disables limiting.
func NewRateLimiter(rdb *redis.Client, window time.Duration, m *metrics.Metrics) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	limiter := &RateLimiter{window: window, metrics: m}
	if rdb != nil {
		limiter.rdb = rdb
	}
	return limiter
}

// Limit allows at most limit requests per window for scope.
func (l *RateLimiter) Limit(scope string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := rateLimitPrefix + ":" + scope + ":" + c.ClientIP()
		count, ttl, err := rediswindow.CountInWindow(c.Request.Context(), l.rdb, key, l.window)
		if err != nil {
			GetLoggerFromContext(c).Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			l.metrics.RateLimited(scope)
			GetLoggerFromContext(c).Warn("Rate limit exceeded", map[string]interface{}{
				"scope": scope,
				"count": count,
			})
			apperrors.TooManyRequests(c, int(math.Ceil(ttl.Seconds())))
			c.Abort()
			return
		}
		c.Next()
	}
}
