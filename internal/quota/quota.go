package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alphatracesol/operator-uplift-gateway/config"
)

// Decision is the outcome of a rate-limit check. WaitSeconds is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed     bool
	WaitSeconds int
	Remaining   int
}

// Store enforces a rolling-window request budget per (user, operation).
type Store interface {
	Check(ctx context.Context, userID, operation string) (Decision, error)
}

// checkScript prunes stale timestamps, rejects when the window is full
// (returning the oldest retained score for wait-time computation), and
// otherwise appends the new timestamp and trims the set to the burst
// bound. Running it as a single script keeps the read-modify-write
// atomic under concurrent checks for the same key.
var checkScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local burst = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, count, oldest[2]}
end
redis.call('ZADD', key, now, member)
redis.call('ZREMRANGEBYRANK', key, 0, -(burst + 1))
redis.call('PEXPIRE', key, window + 30000)
return {1, count + 1, '0'}
`)

// RedisStore keeps one sorted set per (operation, user): member is a
// unique nanosecond stamp, score is the request time in unix millis.
type RedisStore struct {
	rdb    redis.Cmdable
	window time.Duration
	rules  map[string]config.RateLimit
}

func NewRedisStore(rdb redis.Cmdable, window time.Duration, rules map[string]config.RateLimit) *RedisStore {
	return &RedisStore{rdb: rdb, window: window, rules: rules}
}

func (s *RedisStore) Check(ctx context.Context, userID, operation string) (Decision, error) {
	rule, ok := s.rules[operation]
	if !ok {
		rule = s.rules[config.DefaultOperation]
	}
	if rule.Limit <= 0 {
		return Decision{}, fmt.Errorf("quota: no rate limit configured for operation %q", operation)
	}

	key := fmt.Sprintf("quota:%s:%s", operation, userID)
	now := time.Now()
	windowMs := s.window.Milliseconds()
	member := fmt.Sprintf("%d", now.UnixNano())

	res, err := checkScript.Run(ctx, s.rdb, []string{key},
		now.UnixMilli(), windowMs, rule.Limit, rule.Burst, member,
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("quota check: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("quota check: unexpected script reply %v", res)
	}

	allowed := toInt64(res[0]) == 1
	count := toInt64(res[1])

	if allowed {
		return Decision{Allowed: true, Remaining: rule.Limit - int(count)}, nil
	}

	oldest := toInt64(res[2])
	elapsed := now.UnixMilli() - oldest
	waitMs := windowMs - elapsed
	wait := int((waitMs + 999) / 1000)
	if wait < 1 {
		wait = 1
	}

	return Decision{Allowed: false, WaitSeconds: wait}, nil
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case string:
		var n int64
		_, _ = fmt.Sscan(x, &n)
		return n
	}
	return 0
}
