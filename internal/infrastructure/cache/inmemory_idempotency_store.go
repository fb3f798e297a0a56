// Package cache provides idempotency stores for inventory digests.
package cache

import (
	"context"
	"time"

	"github.com/ggc/backend/internal/domain/shared"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired in-memory entries are purged
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore implements IdempotencyStore on go-cache.
// State is local to the process.
type InMemoryIdempotencyStore struct {
	cache *gocache.Cache
}

// NewInMemoryIdempotencyStore creates an in-memory idempotency store
func NewInMemoryIdempotencyStore(cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &InMemoryIdempotencyStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// MarkProcessed records key for ttl. It returns false if key was already recorded and unexpired.
// A non-positive ttl keeps the key until Close.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	// Add fails when an unexpired item exists, which makes it atomic SETNX
	if err := s.cache.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// IsProcessed reports whether key is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}

// Close drops all entries
func (s *InMemoryIdempotencyStore) Close() error {
	s.cache.Flush()
	return nil
}

// Size returns the number of stored entries, expired ones included until cleanup
func (s *InMemoryIdempotencyStore) Size() int {
	return s.cache.ItemCount()
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
