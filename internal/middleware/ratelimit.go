package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/config"
	"github.com/iliyamo/nexura/internal/logging"
)

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter takes one token from the bucket identified by key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// NewLimiter returns a Redis-backed bucket shared by every instance, or an
// in-process one when rdb is nil.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) Limiter {
	if rdb == nil {
		return NewMemoryTokenBucket(cfg, nil)
	}
	return NewRedisTokenBucket(cfg, rdb)
}

var tokenBucketScript = redis.NewScript(`
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

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill, 'capacity', capacity)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RedisTokenBucket runs the refill-and-take step atomically in a Lua
// script so concurrent instances share one bucket per key.
type RedisTokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	Now func() time.Time
}

func NewRedisTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) *RedisTokenBucket {
	return &RedisTokenBucket{cfg: cfg, rdb: rdb, Now: time.Now}
}

func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	args := []any{
		b.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}
	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key}, args...).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit script: %w", err)
	}
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("ratelimit script: unexpected result %#v", vals)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      b.cfg.Capacity,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
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
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// MemoryTokenBucket applies the same refill rule as the Redis script to
// buckets kept in process memory. Buckets idle for longer than the TTL
// are swept lazily.
type MemoryTokenBucket struct {
	cfg config.RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// NewMemoryTokenBucket builds an in-process limiter. now defaults to
// time.Now and is injectable for tests.
func NewMemoryTokenBucket(cfg config.RateLimitConfig, now func() time.Time) *MemoryTokenBucket {
	if now == nil {
		now = time.Now
	}
	return &MemoryTokenBucket{cfg: cfg, now: now, buckets: map[string]*bucket{}}
}

func (m *MemoryTokenBucket) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: m.cfg.Capacity, lastRefill: now}
		m.buckets[key] = b
	}
	b.lastSeen = now

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		if n := int(elapsed / m.cfg.RefillInterval); n > 0 {
			b.tokens = min(m.cfg.Capacity, b.tokens+n*m.cfg.RefillTokens)
			b.lastRefill = b.lastRefill.Add(time.Duration(n) * m.cfg.RefillInterval)
		}
	}

	d := Decision{Limit: m.cfg.Capacity}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = max(0, m.cfg.RefillInterval-now.Sub(b.lastRefill))
	}
	d.Remaining = b.tokens
	return d, nil
}

func (m *MemoryTokenBucket) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.cfg.TTL {
		return
	}
	m.lastSweep = now
	for k, b := range m.buckets {
		if now.Sub(b.lastSeen) > m.cfg.TTL {
			delete(m.buckets, k)
		}
	}
}

// RateLimit throttles requests through l. A limiter error lets the request
// through so an unavailable Redis never takes the API down.
func RateLimit(cfg config.RateLimitConfig, l Limiter) echo.MiddlewareFunc {
	if !cfg.Enabled || l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			ctx := c.Request().Context()
			d, err := l.Allow(ctx, key)
			if err != nil {
				logging.FromContext(ctx).Warn("ratelimit unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				h.Set("Retry-After", strconv.Itoa(max(secs, 0)))
				return apperr.RateLimited("Too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userKey(c)
	route := c.Request().Method + " " + c.Path()

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
