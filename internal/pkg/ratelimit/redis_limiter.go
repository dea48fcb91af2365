package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic check-and-increment against a one-second window.
// Checking before incrementing avoids the race a GET → check → INCR pattern
// has under concurrent workers.
const windowLuaScript = `
local key = KEYS[1]
local increment = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")

if current + increment > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, increment)
if newVal == increment then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// RedisLimiter is a Limiter shared across processes: permits are counted in
// per-second Redis windows, so multiple dispatch workers stay under one
// global ceiling.
type RedisLimiter struct {
	client    *redis.Client
	script    *redis.Script
	key       string
	perSecond int

	now func() time.Time
}

// NewRedisLimiter creates a cross-process limiter allowing perSecond sends
// per second under the given key.
func NewRedisLimiter(client *redis.Client, key string, perSecond int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		script:    redis.NewScript(windowLuaScript),
		key:       key,
		perSecond: perSecond,
		now:       time.Now,
	}
}

// Wait blocks until a permit is granted for the current window or the
// context is done.
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		now := l.now()
		windowKey := fmt.Sprintf("ratelimit:%s:sec:%d", l.key, now.Unix())

		result, err := l.script.Run(ctx, l.client, []string{windowKey}, 1, l.perSecond, 2).Slice()
		if err != nil {
			return fmt.Errorf("rate limit check: %w", err)
		}

		if result[0].(int64) == 1 {
			return nil
		}

		// Window is full; sleep into the next one.
		delay := time.Second - time.Duration(now.Nanosecond())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
