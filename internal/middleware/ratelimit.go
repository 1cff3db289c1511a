package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/document-registry/internal/config"
	"github.com/iliyamo/document-registry/internal/metrics"
)

// takeScript refills the bucket at KEYS[1] for the whole intervals elapsed
// since its last refill and then tries to take one token.
// ARGV: now_ms, capacity, refill_tokens, interval_ms, ttl_s.
// Returns {allowed, tokens_left, wait_ms}.
var takeScript = redis.NewScript(`
local now, cap, step, every, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local h = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local left, ts = tonumber(h[1]), tonumber(h[2])
if left == nil or ts == nil then
	left, ts = cap, now
elseif now > ts then
	local n = math.floor((now - ts) / every)
	if n > 0 then
		left = math.min(cap, left + n * step)
		ts = ts + n * every
	end
end
local ok, wait = 0, 0
if left > 0 then
	ok, left = 1, left - 1
else
	wait = math.max(0, every - (now - ts))
end
redis.call('HMSET', KEYS[1], 'tokens', left, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, left, wait}
`)

type bucketDecision struct {
	allowed   bool
	remaining int64
	wait      time.Duration
}

// tokenBucket is one Redis hash per key holding the token count and the
// time of the last refill.
type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

func (b *tokenBucket) take(ctx context.Context, key string) (bucketDecision, error) {
	every := b.cfg.RefillInterval.Milliseconds()
	if every < 1 {
		every = 1
	}
	ttl := int64(b.cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(), b.cfg.Capacity, b.cfg.RefillTokens, every, ttl).Int64Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	if len(res) != 3 {
		return bucketDecision{}, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}
	return bucketDecision{
		allowed:   res[0] == 1,
		remaining: res[1],
		wait:      time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis-side token bucket.
// It is a pass-through when disabled or without a client, and fails open
// when Redis errors.  now is injectable for tests; nil means time.Now.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, now func() time.Time) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if now == nil {
		now = time.Now
	}
	b := &tokenBucket{cfg: cfg, rdb: rdb, now: now}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := rateKey(cfg, c)
			d, err := b.take(ctx, key)
			if err != nil {
				slog.WarnContext(ctx, "ratelimit: bucket unavailable, allowing", "key", key, "err", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if d.allowed {
				metrics.RateLimitAllowed.WithLabelValues(c.Path()).Inc()
				return next(c)
			}

			metrics.RateLimitRejected.WithLabelValues(c.Path()).Inc()
			secs := int(math.Ceil(d.wait.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				slog.InfoContext(ctx, "ratelimit: rejected", "key", key, "wait", d.wait)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "Too many requests", "retry_after": secs})
		}
	}
}

// rateKey names the bucket for c.  The limited routes are all
// unauthenticated, so buckets are keyed by client IP, route, or both.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		return cfg.Prefix + ":ip:" + ip
	case "route":
		return cfg.Prefix + ":route:" + route
	default:
		return cfg.Prefix + ":ip:" + ip + ":route:" + route
	}
}
