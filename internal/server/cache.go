package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyJobs       = "catalog:jobs"
	cacheKeyCategories = "catalog:categories"
	cacheKeyJobPrefix  = "catalog:job:"
)

// redisCmdable is the subset of redis.UniversalClient the cache uses.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CatalogCache keeps public catalog responses in Redis for a short TTL.
// Cache errors are logged and treated as misses.
type CatalogCache struct {
	client redisCmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogCache wraps client. A nil client yields a nil cache, which
// every method treats as disabled.
func NewCatalogCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if client == nil {
		return nil
	}
	return newCatalogCache(client, ttl, logger)
}

func newCatalogCache(client redisCmdable, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogCache{client: client, ttl: ttl, logger: logger.Named("catalog-cache")}
}

// get decodes a cached value into v and reports whether it was present.
func (c *CatalogCache) get(ctx context.Context, key string, v any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CatalogCache) set(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the list entries and the entries of the given jobs.
func (c *CatalogCache) Invalidate(ctx context.Context, jobIDs ...string) {
	if c == nil {
		return
	}
	keys := []string{cacheKeyJobs, cacheKeyCategories}
	for _, id := range jobIDs {
		keys = append(keys, cacheKeyJobPrefix+id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
