// Package db defines the key-value store contract behind the embedding
// cache layers. Implementations live in memory and redis.
package db

import (
	"context"
	"time"
)

// Store is one cache layer: key-value access, a health probe and shutdown.
type Store interface {
	KVStore
	Pinger
	Close()
}

// KVStore is byte-valued storage. Get reports a miss as ErrKeyNotFound.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
