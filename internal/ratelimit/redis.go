package ratelimit

import (
    "context"
    "fmt"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"
)

// bucketScript refills continuously from the elapsed milliseconds, then
// tries to take one token.  State lives in a hash that expires when idle.
var bucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_ms = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local elapsed = math.max(0, now_ms - last_refill)
    tokens = math.min(capacity, tokens + (elapsed * refill_tokens / interval_ms))
    last_refill = math.max(last_refill, now_ms)

    local allowed = 0
    local retry_after_ms = 0
    if tokens >= 1 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.ceil((1 - tokens) * interval_ms / refill_tokens)
    end

    redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill_ms', tostring(last_refill))
    redis.call('PEXPIRE', key, ttl_ms)

    return { allowed, math.floor(tokens), retry_after_ms }
`)

// RedisLimiter shares buckets between replicas.  Keys are prefixed with
// Prefix and expire after TTL of inactivity.
type RedisLimiter struct {
    rdb    redis.Scripter
    policy Policy
    prefix string
    ttl    time.Duration
    now    func() time.Time
}

// NewRedisLimiter builds a limiter.  The TTL is raised to at least the time
// an empty bucket needs to refill completely.
func NewRedisLimiter(rdb redis.Scripter, p Policy, prefix string, ttl time.Duration, now func() time.Time) *RedisLimiter {
    p = p.normalized()
    if full := time.Duration(p.Capacity) * p.tokenInterval(); ttl < full {
        ttl = full
    }
    if now == nil {
        now = time.Now
    }
    if prefix == "" {
        prefix = "rl"
    }
    return &RedisLimiter{rdb: rdb, policy: p, prefix: prefix, ttl: ttl, now: now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
    vals, err := bucketScript.Run(ctx, r.rdb, []string{r.prefix + ":" + key},
        r.now().UnixMilli(),
        r.policy.Capacity,
        r.policy.RefillTokens,
        r.policy.RefillInterval.Milliseconds(),
        r.ttl.Milliseconds(),
    ).Slice()
    if err != nil {
        return Decision{}, fmt.Errorf("ratelimit script: %w", err)
    }
    if len(vals) != 3 {
        return Decision{}, fmt.Errorf("ratelimit script: unexpected result %#v", vals)
    }
    return Decision{
        Allowed:    asInt64(vals[0]) == 1,
        Limit:      r.policy.Capacity,
        Remaining:  int(asInt64(vals[1])),
        RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
    }, nil
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int: return int64(t)
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}
