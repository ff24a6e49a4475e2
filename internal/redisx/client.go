package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	return r.WithTimeout(2 * time.Second)
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Cache narrows the client to plain get/set for callers that only cache.
type Cache struct{ R *redis.Client }

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return c.R.Get(ctx, key).Result()
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.R.Set(ctx, key, value, ttl).Err()
}
