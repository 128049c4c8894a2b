package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitIPPrefix is the Redis key prefix for per-IP buckets:
	// ratelimit:ip:<scope>:<hashed ip>.
	rateLimitIPPrefix = "ratelimit:ip:"
	// rateLimitMinTTL bounds how long an idle bucket is kept.
	rateLimitMinTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// ipBucketScript refills and takes one token atomically. Time is in
// milliseconds so slow auth budgets (a few per minute) refill smoothly.
//
// KEYS[1] bucket key
// ARGV[1] refill rate in tokens per millisecond
// ARGV[2] capacity
// ARGV[3] now, unix milliseconds
// ARGV[4] idle expiry in milliseconds
//
// Returns {allowed, retry_after_ms, remaining_tokens}.
var ipBucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now
if now > ts then
	tokens = math.min(capacity, tokens + (now - ts) * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', now)
redis.call('PEXPIRE', KEYS[1], ARGV[4])

return {allowed, wait, math.floor(tokens)}
`)

// CheckIPRateLimit takes one token from the bucket of ip within scope
// (for example "login" or "register"). The IP is hashed before use as a key.
// A non-positive rate or burst disables the check.
//
// On Redis failure the request is allowed and the error is returned so the
// caller can log it.
func (c *Cache) CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerMinute, burst int) (*RateLimitResult, error) {
	now := time.Now()
	if ratePerMinute <= 0 || burst <= 0 {
		return openResult(now, burst), nil
	}

	perMs := float64(ratePerMinute) / float64(time.Minute/time.Millisecond)

	// Keep the bucket until it would be full again.
	idle := time.Duration(float64(burst)/perMs) * time.Millisecond
	if idle < rateLimitMinTTL {
		idle = rateLimitMinTTL
	}

	key := rateLimitIPPrefix + scope + ":" + hashIP(ip)
	res, err := ipBucketScript.Run(ctx, c.client, []string{key},
		perMs, burst, now.UnixMilli(), idle.Milliseconds(),
	).Int64Slice()
	if err == nil && len(res) != 3 {
		err = fmt.Errorf("unexpected script result length %d", len(res))
	}
	if err != nil {
		return openResult(now, burst), fmt.Errorf("rate limit check: %w", err)
	}

	// Time until the bucket holds one more token than it does now.
	nextToken := time.Duration(1/perMs) * time.Millisecond

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(nextToken),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

// openResult is returned when limiting is disabled or unavailable.
func openResult(now time.Time, burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   now.Add(time.Minute),
	}
}

// hashIP keys buckets by a truncated SHA-256 so raw client IPs never reach Redis.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
