package cache

import (
	"context"
	"time"
)

// ResponseCache is a time-expiring key-value store shared by the resolvers
// for the lifetime of the process. Implementations must be safe for
// arbitrary concurrent use; an entry past its TTL must never be returned.
type ResponseCache interface {
	// Get retrieves the value for key. Returns nil, nil when the key is
	// absent or expired (cache miss).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the backing store.
	Close() error
}
