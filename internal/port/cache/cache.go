// Package cache defines the port for serving derived data from memory.
package cache

import (
	"context"
	"time"
)

// Cache holds serialized derived values, such as computed history
// analytics, keyed by name. Entries may be evicted at any time; a miss
// is never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
