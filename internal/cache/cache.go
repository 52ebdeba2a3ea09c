package cache

import (
	"context"
	"time"
)

// Cache stores JSON-serializable values with a TTL. Implementations are safe
// for concurrent use; concurrent writers to the same key follow
// last-writer-wins.
type Cache interface {
	// Get unmarshals the value at key into dest and reports whether the key
	// was present and unexpired.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
