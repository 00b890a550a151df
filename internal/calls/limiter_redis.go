package calls

import (
	"context"

	"whisperline/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisRingingLimiter caps each caller to one outstanding ringing call
// using the shared atomic concurrency-cap scripts. The slot TTL matches
// the ringing window, so a slot that is never released expires with the
// call it covered.
type RedisRingingLimiter struct {
	rdb *redis.Client
}

func NewRedisRingingLimiter(rdb *redis.Client) *RedisRingingLimiter {
	return &RedisRingingLimiter{rdb: rdb}
}

func (l *RedisRingingLimiter) Acquire(ctx context.Context, callerID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, ringingCapKey(callerID), 1, RingingWindow)
}

func (l *RedisRingingLimiter) Release(ctx context.Context, callerID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, ringingCapKey(callerID))
}

func ringingCapKey(callerID string) string {
	return "calls:ringing:" + callerID
}
