package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var claimRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateLimiter implements distributed fixed-window rate limiting for
// claim attempts, shared across concurrently running webhook invocations.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "poapflow:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// Allow consumes one attempt from the subject's one-minute window and
// reports whether the attempt is within the limit.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limitPerMinute int) (bool, error) {
	if r == nil || r.client == nil || limitPerMinute <= 0 {
		return true, nil
	}

	subject := strings.TrimSpace(key)
	if subject == "" {
		return true, nil
	}

	fullKey := fmt.Sprintf("%s:%s", r.prefix, subject)
	rawResult, err := claimRateLimitScript.Run(ctx, r.client, []string{fullKey}, 60_000).Result()
	if err != nil {
		return false, err
	}

	count, ok := rawResult.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected redis limiter response type: %T", rawResult)
	}

	return count <= int64(limitPerMinute), nil
}
