// Package redis holds the Redis-backed issuance limiter. Counters are keyed
// by address and expire with the issuance window, so throttling state is
// shared across instances without any global contention.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-recovery-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// incrWithTTL bumps the window counter and stamps the TTL in the same atomic
// step, so a counter can never outlive its window even if the caller dies
// mid-call.
var incrWithTTL = redis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// IssueLimiter enforces at most maxPerWindow issuances per address per
// fixed window.
type IssueLimiter struct {
	client       redis.UniversalClient
	window       time.Duration
	maxPerWindow int
}

func NewIssueLimiter(client redis.UniversalClient, window time.Duration, maxPerWindow int) *IssueLimiter {
	return &IssueLimiter{client: client, window: window, maxPerWindow: maxPerWindow}
}

func (l *IssueLimiter) Allow(ctx context.Context, address string) error {
	key := "recovery:issue:" + address
	count, err := incrWithTTL.Run(ctx, l.client, []string{key}, int(l.window.Seconds())).Int64()
	if err != nil {
		return fmt.Errorf("rate-limit counter: %w", err)
	}
	if count > int64(l.maxPerWindow) {
		return domain.ErrRateLimited
	}
	return nil
}
