package registry

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVStore is the minimal store contract the registry needs. Implementations must be safe
// for concurrent use.
type KVStore interface {
	Set(ctx context.Context, key, value string) error
	// Get returns ok=false, err=nil when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisKV adapts a go-redis client to KVStore.
type RedisKV struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisKV wraps client. A zero ttl writes keys without expiry.
func NewRedisKV(client redis.UniversalClient, ttl time.Duration) *RedisKV {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisKV{client: client, ttl: ttl}
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, r.ttl).Err()
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
