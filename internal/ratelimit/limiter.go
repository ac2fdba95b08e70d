package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NopLimiter allows everything. Used when Redis is disabled.
type NopLimiter struct{}

func (NopLimiter) Allow(context.Context, string) (bool, error) {
	return true, nil
}

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local info = redis.call("HMGET", key, "tokens", "last_refill")
	local tokens = tonumber(info[1])
	local last_refill = tonumber(info[2])

	if tokens == nil then
		tokens = capacity
		last_refill = now
	end

	local delta = math.max(0, now - last_refill)
	local filled_tokens = math.min(capacity, tokens + (delta / 1000 * rate))

	local allowed = 0
	if filled_tokens >= requested then
		filled_tokens = filled_tokens - requested
		allowed = 1
		redis.call("HMSET", key, "tokens", filled_tokens, "last_refill", now)
		redis.call("EXPIRE", key, math.ceil(capacity / rate) * 2)
	end

	return allowed
`)

// RedisLimiter is a token bucket per key kept in a Redis hash.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	capacity int
	rate     float64 // tokens per second
	now      func() time.Time
}

func NewRedisLimiter(client *redis.Client, burst int, perMinute float64) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		prefix:   "ratelimit:",
		capacity: burst,
		rate:     perMinute / 60,
		now:      time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := tokenBucketScript.Run(ctx, l.client, []string{l.prefix + key},
		l.capacity, l.rate, l.now().UnixMilli(), 1).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
