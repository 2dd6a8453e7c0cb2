package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"
)

type valkeyCache struct {
	client valkey.Client
}

// NewValKeyCache returns a valkey backed cache
func NewValKeyCache(client valkey.Client) Cache {
	return &valkeyCache{client: client}
}

// Set stores a value, JSON encoded, under key with a maximum ttl
func (v *valkeyCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	cmd := v.client.B().Set().Key(key).Value(string(payload))
	if ttl > 0 {
		return v.client.Do(ctx, cmd.Ex(ttl).Build()).Error()
	}
	return v.client.Do(ctx, cmd.Build()).Error()
}

// Get retrieves an entry, storing it in value, that must be a reference
func (v *valkeyCache) Get(ctx context.Context, key string, value any) bool {
	resp := v.client.Do(ctx, v.client.B().Get().Key(key).Build())
	if resp.Error() != nil {
		return false
	}
	payload, err := resp.AsBytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, value) == nil
}

// Exists tells whether a key is cached
func (v *valkeyCache) Exists(ctx context.Context, key string) bool {
	n, err := v.client.Do(ctx, v.client.B().Exists().Key(key).Build()).AsInt64()
	return err == nil && n > 0
}

// Delete removes an entry from the cache
func (v *valkeyCache) Delete(ctx context.Context, key string) error {
	return v.client.Do(ctx, v.client.B().Del().Key(key).Build()).Error()
}
