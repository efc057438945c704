package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("booking lock held")

// Locker serializes bookings for the same staff member and day.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context), err error)
}

// NoopLocker keeps the plain check-then-insert behaviour: two concurrent
// requests for the same slot can both pass the availability re-check.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

// RedisLocker holds a short-lived SET NX lock per key. Release only deletes
// the key if it still carries this holder's token.
type RedisLocker struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}

func lockKey(businessID, staffID, date string) string {
	return "booking:lock:" + businessID + ":" + staffID + ":" + date
}
