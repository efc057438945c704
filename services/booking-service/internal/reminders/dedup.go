package reminders

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultDedupTTL = 24 * time.Hour

// Deduper claims a reminder key. Claim returns false when the key was
// already claimed within its TTL.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// NoDedup accepts every key, so repeated scheduler runs inside one window
// enqueue duplicates.
type NoDedup struct{}

func (NoDedup) Claim(context.Context, string) (bool, error) { return true, nil }

type RedisDedup struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDedup(rdb redis.Cmdable, ttl time.Duration) *RedisDedup {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDedup{rdb: rdb, ttl: ttl}
}

func (d *RedisDedup) Claim(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

func dedupKey(businessID, appointmentID, kind string, offset time.Duration) string {
	return "reminder:dedup:" + businessID + ":" + appointmentID + ":" + kind + ":" + offset.String()
}
