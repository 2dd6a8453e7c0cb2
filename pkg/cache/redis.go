package cache

import (
	"context"
	"time"

	rediscache "github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"

	"github.com/fides-dpp/trust-engine/internal/log"
)

type redisCache struct {
	c *rediscache.Cache
}

// NewRedisCache returns a redis backed cache with a small local tier
func NewRedisCache(client *redis.Client) Cache {
	const localCacheSize = 1000
	return &redisCache{
		c: rediscache.New(&rediscache.Options{
			Redis:      client,
			LocalCache: rediscache.NewTinyLFU(localCacheSize, time.Minute),
		}),
	}
}

// Set stores a value in the cache under key with a maximum ttl
func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return r.c.Set(&rediscache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

// Get retrieves an entry, storing it in value, that must be a reference
func (r *redisCache) Get(ctx context.Context, key string, value any) bool {
	if err := r.c.Get(ctx, key, value); err != nil {
		return false
	}
	return true
}

// Exists tells whether a key is cached
func (r *redisCache) Exists(ctx context.Context, key string) bool {
	return r.c.Exists(ctx, key)
}

// Delete removes an entry from the cache
func (r *redisCache) Delete(ctx context.Context, key string) error {
	err := r.c.Delete(ctx, key)
	if err != nil && err != rediscache.ErrCacheMiss {
		log.Error(ctx, "deleting cache entry", err, "key", key)
		return err
	}
	return nil
}
