// Package memory is an in-process, size-bounded LRU key-value store.
package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/coursefind/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultSize is the entry limit used when none is configured.
const DefaultSize = 10_000

type entry struct {
	value    []byte
	expireAt time.Time // zero: never
}

// Store implements db.Store over an LRU cache. Safe for concurrent use.
type Store struct {
	cache *lru.Cache[string, entry]
	now   func() time.Time
}

// NewStore creates a store holding at most size entries.
func NewStore(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Store{cache: c, now: time.Now}, nil
}

// Get retrieves a value by key. Expired entries are evicted on read.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		s.cache.Remove(key)
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

// Set stores a copy of value at key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.cache.Add(key, entry{value: clone(value)})
	return nil
}

// SetWithTTL stores a copy of value that expires after ttl.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return &db.Error{Op: db.OpSet, Err: fmt.Errorf("ttl must be positive, got %s", ttl)}
	}
	s.cache.Add(key, entry{value: clone(value), expireAt: s.now().Add(ttl)})
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (s *Store) Len() int { return s.cache.Len() }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close drops all entries.
func (s *Store) Close() { s.cache.Purge() }

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
