// Package cache memoizes list query results in Redis.
//
// Entries are namespaced by a generation counter. Invalidate bumps the
// generation, which orphans every cached list at once; orphans then expire
// through their TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey = "confessions:list:generation"
	listKeyPrefix = "confessions:list:"
)

// ListCache stores serialized list responses keyed by a canonical query key.
// Get returns the generation it looked in; passing it back to Set keeps a
// result computed before an Invalidate from landing in the new generation.
type ListCache interface {
	Get(ctx context.Context, queryKey string, dst any) (gen int64, hit bool, err error)
	Set(ctx context.Context, gen int64, queryKey string, v any) error
	Invalidate(ctx context.Context) error
}

type RedisListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisListCache(client *redis.Client, ttl time.Duration) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl}
}

func (c *RedisListCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisListCache) key(gen int64, queryKey string) string {
	sum := sha256.Sum256([]byte(queryKey))
	return fmt.Sprintf("%s%d:%s", listKeyPrefix, gen, hex.EncodeToString(sum[:]))
}

// Get reports whether a cached value was found and decoded into dst.
func (c *RedisListCache) Get(ctx context.Context, queryKey string, dst any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, err
	}
	raw, err := c.client.Get(ctx, c.key(gen, queryKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("failed to read cached list: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gen, false, fmt.Errorf("failed to decode cached list: %w", err)
	}
	return gen, true, nil
}

func (c *RedisListCache) Set(ctx context.Context, gen int64, queryKey string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode list: %w", err)
	}
	if err := c.client.Set(ctx, c.key(gen, queryKey), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache list: %w", err)
	}
	return nil
}

func (c *RedisListCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

// NopListCache never hits. Used when caching is disabled.
type NopListCache struct{}

func (NopListCache) Get(context.Context, string, any) (int64, bool, error) { return 0, false, nil }
func (NopListCache) Set(context.Context, int64, string, any) error        { return nil }
func (NopListCache) Invalidate(context.Context) error                     { return nil }
