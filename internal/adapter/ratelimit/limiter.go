package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tokenBucket refills at ARGV[1] tokens per second up to ARGV[2] tokens and
// takes one token per call. The bucket state is a hash {last_refill, tokens}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
redis.call('EXPIRE', key, ttl)
return {allowed, math.floor(tokens)}
`)

// Config holds configuration for the rate limiter.
type Config struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
	KeyPrefix         string
}

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Remaining int64
}

// Limiter is a distributed token bucket kept in Redis.
type Limiter struct {
	client *redis.Client
	config Config
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Limiter. A nil client or a disabled config yields a limiter
// that allows everything.
func New(client *redis.Client, config Config, log *zap.Logger) *Limiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit:tb"
	}
	if config.Burst <= 0 {
		config.Burst = int(math.Ceil(config.RequestsPerSecond))
	}
	return &Limiter{
		client: client,
		config: config,
		log:    log,
		now:    time.Now,
	}
}

// Enabled reports whether requests are actually being limited.
func (l *Limiter) Enabled() bool {
	return l != nil && l.client != nil && l.config.Enabled && l.config.RequestsPerSecond > 0
}

// Config returns the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// Allow takes one token from the bucket identified by key. Redis failures are
// logged and the request is let through.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	if !l.Enabled() {
		return Result{Allowed: true, Remaining: -1}
	}

	now := float64(l.now().UnixMicro()) / 1e6
	ttl := int64(math.Ceil(float64(l.config.Burst)/l.config.RequestsPerSecond)) + 1

	vals, err := tokenBucket.Run(ctx, l.client,
		[]string{fmt.Sprintf("%s:%s", l.config.KeyPrefix, key)},
		l.config.RequestsPerSecond, l.config.Burst, now, ttl,
	).Int64Slice()
	if err != nil || len(vals) != 2 {
		l.log.Warn("rate limiter redis error, allowing request", zap.String("key", key), zap.Error(err))
		return Result{Allowed: true, Remaining: -1}
	}

	return Result{Allowed: vals[0] == 1, Remaining: vals[1]}
}
