package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/bilifx/internal/infrastructure/metrics"
)

// sweepInterval is how often the janitor removes expired entries. Expiry is
// still evaluated lazily on every read; the sweep only reclaims memory.
const sweepInterval = 5 * time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryResponseCache implements ResponseCache with an in-process TTL map.
// It is the default backend; entries do not survive process restarts.
type MemoryResponseCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryResponseCache creates an in-memory response cache and starts its
// background sweep. Close stops the sweep.
func NewMemoryResponseCache() *MemoryResponseCache {
	c := &MemoryResponseCache{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get retrieves a cached value. Returns nil, nil when the key is absent or
// its TTL has elapsed.
func (c *MemoryResponseCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheBackendMemory).Inc()
		return nil, nil
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheBackendMemory).Inc()
	return entry.value, nil
}

// Set stores a value with the specified TTL.
func (c *MemoryResponseCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheBackendMemory).Inc()
	return nil
}

// Close stops the background sweep. Safe to call more than once.
func (c *MemoryResponseCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryResponseCache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
