package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

// responseCacheKeyPrefix namespaces resolver entries in Redis.
const responseCacheKeyPrefix = "resolve:"

// RedisResponseCache implements ResponseCache on Redis. Expiry is enforced
// by Redis itself, so entries survive process restarts but never outlive
// their TTL.
type RedisResponseCache struct {
	client *redis.Client
}

// NewRedisResponseCache creates a Redis-backed response cache.
func NewRedisResponseCache(client *redis.Client) *RedisResponseCache {
	return &RedisResponseCache{client: client}
}

// Get retrieves a cached value. Returns nil, nil on cache miss.
func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, responseCacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheBackendRedis).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheBackendRedis).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheBackendRedis).Inc()
	return data, nil
}

// Set stores a value with the specified TTL.
func (c *RedisResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, responseCacheKeyPrefix+key, value, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheBackendRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheBackendRedis).Inc()
	return nil
}

// Close closes the underlying Redis connection.
func (c *RedisResponseCache) Close() error {
	return c.client.Close()
}
