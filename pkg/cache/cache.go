package cache

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/fides-dpp/trust-engine/internal/config"
	"github.com/fides-dpp/trust-engine/internal/log"
	"github.com/fides-dpp/trust-engine/internal/redis"
)

// ForEver It can be cached forever
const ForEver = 0 * time.Second

// Cache interface proposes an interface that any cache should adhere
type Cache interface {
	// Set sets a value in the cache accessible by the key. The ttl param is the maximum time to live in the cache.
	// ttl=0 means the entry could be cached forever
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Get searches a non expired entry in the cache and stores it in value, that must be passed as a reference.
	// Only trust value if the returned bool is true
	Get(ctx context.Context, key string, value any) bool
	// Exists tells whether a key exists in the cache with a valid ttl
	Exists(ctx context.Context, key string) bool
	// Delete removes an entry from the cache
	Delete(ctx context.Context, key string) error
}

// NewCacheClient creates a new cache client based on the configuration
func NewCacheClient(ctx context.Context, cfg config.Configuration) (Cache, error) {
	switch cfg.Cache.Provider {
	case config.CacheProviderRedis:
		rdb, err := redis.Open(ctx, cfg.Cache.Url)
		if err != nil {
			log.Error(ctx, "cannot connect to redis", err, "host", cfg.Cache.Url)
			return nil, err
		}
		return NewRedisCache(rdb), nil
	case config.CacheProviderValKey:
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.Cache.Url}})
		if err != nil {
			log.Error(ctx, "cannot connect to valkey", err, "host", cfg.Cache.Url)
			return nil, err
		}
		return NewValKeyCache(client), nil
	default:
		return NewMemoryCache(), nil
	}
}
