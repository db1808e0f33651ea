package cache

import (
	"sync"
	"time"
)

// SnapshotCache keeps the latest value per key together with the time it stops counting as fresh.
// An expired value is never dropped: GetStale keeps serving it until Set replaces it.
type SnapshotCache[T any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]snapshot[T]
	now   func() time.Time
}

type snapshot[T any] struct {
	data      T
	expiresAt time.Time
}

// NewSnapshotCache creates a cache whose entries are fresh for ttl. A nil now uses time.Now.
func NewSnapshotCache[T any](ttl time.Duration, now func() time.Time) *SnapshotCache[T] {
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache[T]{
		ttl:   ttl,
		items: make(map[string]snapshot[T]),
		now:   now,
	}
}

// Get returns a value only while it is fresh.
func (c *SnapshotCache[T]) Get(key string) (T, bool) {
	value, fresh, ok := c.GetStale(key)
	if !ok || !fresh {
		var zero T
		return zero, false
	}
	return value, true
}

// GetStale returns the value even if it expired. fresh reports whether it is still within its TTL.
func (c *SnapshotCache[T]) GetStale(key string) (value T, fresh bool, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists {
		return value, false, false
	}
	return item.data, !c.now().After(item.expiresAt), true
}

// Set replaces the value for key and restarts its TTL.
func (c *SnapshotCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = snapshot[T]{data: data, expiresAt: c.now().Add(c.ttl)}
}
