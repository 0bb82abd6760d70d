package cache

import (
	"context"
	"time"
)

// Backend is the shared TTL key/value store behind the listing and
// recommendation caches. Implemented by the memory backend (dev/tests)
// and the Redis backend (prod, shared across replicas).
//
// Entries are owned by the backend: callers overwrite atomically via Set
// and never mutate a stored value in place.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting an absent key is a no-op,
	// which makes duplicate invalidation delivery safe.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key in a namespace. Used for
	// scope-based invalidation of the listing cache.
	DeletePrefix(ctx context.Context, prefix string) error
}
