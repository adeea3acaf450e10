package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/logger"
)

// bucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals * refill_tokens)
		last_refill = last_refill + intervals * interval_ms
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, tokens, retry_after_ms }
`)

// localLimiters is the per-process fallback used when Redis is absent or
// failing.  Idle keys are dropped lazily on access.
type localLimiters struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	sweptAt time.Time
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLocalLimiters(cfg config.RateLimitConfig) *localLimiters {
	return &localLimiters{
		entries: make(map[string]*localEntry),
		limit:   rate.Limit(cfg.PerSecond()),
		burst:   cfg.Capacity,
		idleTTL: cfg.TTL,
	}
}

func (l *localLimiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweptAt) > l.idleTTL {
		cutoff := now.Add(-l.idleTTL)
		for k, e := range l.entries {
			if e.lastSeen.Before(cutoff) {
				delete(l.entries, k)
			}
		}
		l.sweptAt = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// allow reports whether the request may pass, the tokens left and how
// long to wait when it may not.
func (l *localLimiters) allow(key string, now time.Time) (bool, int64, time.Duration) {
	lim := l.get(key, now)
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, 0, d
	}
	return true, int64(lim.TokensAt(now)), 0
}

// NewTokenBucket limits requests per key (see RateLimitConfig.KeyStrategy).
// Redis holds the shared bucket; when rdb is nil or a script call fails
// and cfg.Fallback is set, an in-process limiter with the same capacity
// and refill rate decides instead.  v resolves the user part of the key
// from the Bearer token; with a nil v every caller counts as "anon".
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, v AccessVerifier) echo.MiddlewareFunc {
	if !cfg.Enabled || (rdb == nil && !cfg.Fallback) {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	var local *localLimiters
	if cfg.Fallback {
		local = newLocalLimiters(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c, v)
			now := time.Now()

			allowed, remaining, retry, ok := redisAllow(c, cfg, rdb, key, now)
			if !ok {
				if local == nil {
					return next(c)
				}
				allowed, remaining, retry = local.allow(key, now)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := int(math.Ceil(retry.Seconds()))
				h.Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// redisAllow runs the bucket script.  ok is false when Redis could not
// answer and the caller should fall back.
func redisAllow(c echo.Context, cfg config.RateLimitConfig, rdb *redis.Client, key string, now time.Time) (allowed bool, remaining int64, retry time.Duration, ok bool) {
	if rdb == nil {
		return false, 0, 0, false
	}
	vals, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
		now.UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Slice()
	if err != nil || len(vals) != 3 {
		if cfg.Debug {
			logger.L().Warn("rate limit script failed", "key", key, "err", err)
		}
		return false, 0, 0, false
	}
	return asInt64(vals[0]) == 1, asInt64(vals[1]), time.Duration(asInt64(vals[2])) * time.Millisecond, true
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	n, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)
	return n
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context, v AccessVerifier) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userKey(c, v)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}
