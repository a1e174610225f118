package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/spot-saver/internal/app"
	"github.com/iliyamo/spot-saver/internal/config"
)

// tokenBucket refills capacity-bounded tokens per interval and takes one.
// It returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval_ms
end

local allowed = 0
local retry = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// RateLimiter is a Redis token bucket guarding the sign-in and sign-up
// endpoints against password guessing and client creation against floods.
type RateLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

// NewRateLimiter returns a limiter; a nil client disables it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// Middleware answers 429 with Retry-After once the caller's bucket is
// empty.  Redis failures let the request through.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return rl.limit(rl.key, func() int { return rl.cfg.Capacity }, nil)
}

// NewClients limits, per IP, the requests that would create a browser
// client: those without a cookie naming a live one.
func (rl *RateLimiter) NewClients(reg *app.Registry) echo.MiddlewareFunc {
	key := func(c echo.Context) string {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		return strings.Join([]string{rl.cfg.Prefix, "new_client", "ip", ip}, ":")
	}
	known := func(c echo.Context) bool {
		ck, err := c.Cookie(app.CookieName)
		if err != nil || ck.Value == "" {
			return false
		}
		_, ok := reg.Lookup(ck.Value)
		return ok
	}
	return rl.limit(key, func() int { return rl.cfg.NewClientCapacity }, known)
}

// limit takes a token from the bucket named by key unless skip says the
// request is exempt.
func (rl *RateLimiter) limit(key func(echo.Context) string, capacity func() int, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl == nil || !rl.cfg.Enabled || rl.rdb == nil {
				return next(c)
			}
			if skip != nil && skip(c) {
				return next(c)
			}
			k := key(c)
			limit := capacity()
			res, err := tokenBucket.Run(c.Request().Context(), rl.rdb, []string{k},
				rl.now().UnixMilli(),
				limit,
				rl.cfg.RefillTokens,
				rl.cfg.RefillInterval.Milliseconds(),
				int64(rl.cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				if rl.cfg.Debug {
					c.Logger().Warnf("ratelimit: key=%s: %v", k, err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] == 1 {
				return next(c)
			}
			secs := int(math.Ceil(float64(res[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			if rl.cfg.Debug {
				c.Logger().Infof("ratelimit: block key=%s retry=%dms", k, res[2])
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"retry_after": secs,
			})
		}
	}
}

// key builds the sign-in/sign-up bucket key for the configured strategy.
func (rl *RateLimiter) key(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	parts := []string{rl.cfg.Prefix}
	switch strings.ToLower(rl.cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", userID(c))
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", userID(c))
	case "user_route":
		parts = append(parts, "user", userID(c), "route", route)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", userID(c), "route", route)
	}
	return strings.Join(parts, ":")
}
