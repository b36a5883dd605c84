package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Defaults for the auth endpoint limiter: 10 attempts per minute
	// per client address.
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute

	rateLimitKeyPrefix = "taskforge:ratelimit"
	rateLimitOpTimeout = 250 * time.Millisecond
)

// Limiter is a fixed-window request limiter backed by Redis. It fails
// open: when Redis is unreachable, requests are allowed through.
type Limiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger zerolog.Logger
}

// NewLimiter creates a limiter. Panics if redisClient is nil.
func NewLimiter(redisClient *redis.Client, limit int, window time.Duration) *Limiter {
	if redisClient == nil {
		panic("httpapi: redis client is required")
	}
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Limiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		logger: log.With().Str("component", "rate-limiter").Logger(),
	}
}

// Allow counts one attempt for the given client on the given route and
// reports whether it is within the window limit.
func (l *Limiter) Allow(ctx context.Context, route, clientIP string) bool {
	ctx, cancel := context.WithTimeout(ctx, rateLimitOpTimeout)
	defer cancel()

	key := fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, route, clientIP)

	pipe := l.redis.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		authRateLimitErrorsTotal.Inc()
		l.logger.Warn().Err(err).Str("route", route).Msg("Rate limiter unavailable, allowing request")
		return true
	}

	if count.Val() > int64(l.limit) {
		authRateLimitBlocksTotal.Inc()
		l.logger.Warn().
			Str("route", route).
			Str("client_ip", clientIP).
			Int64("attempts", count.Val()).
			Msg("Rate limit exceeded")
		return false
	}
	return true
}

// Middleware enforces the limiter on a route group. A nil limiter is a
// no-op, which keeps the limiter optional in tests.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil {
				return next(c)
			}
			if !l.Allow(c.Request().Context(), c.Path(), c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, retry later")
			}
			return next(c)
		}
	}
}
