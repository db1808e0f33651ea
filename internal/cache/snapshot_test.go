package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(ttl time.Duration) (*SnapshotCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewSnapshotCache[string](ttl, clock.now), clock
}

func TestSnapshotCache_GetSet(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	c.Set("INR", "1")
	v, ok := c.Get("INR")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("USD")
	assert.False(t, ok)
	_, _, ok = c.GetStale("USD")
	assert.False(t, ok)
}

func TestSnapshotCache_ExpiredEntriesStayStale(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set("INR", "snapshot")

	clock.t = clock.t.Add(2 * time.Minute)

	_, ok := c.Get("INR")
	assert.False(t, ok, "expired entry must not be returned as fresh")

	v, fresh, ok := c.GetStale("INR")
	assert.True(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, "snapshot", v)
}

func TestSnapshotCache_SetRestartsTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set("INR", "old")

	clock.t = clock.t.Add(2 * time.Minute)
	c.Set("INR", "new")

	v, fresh, ok := c.GetStale("INR")
	assert.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, "new", v)
}

func TestNewSnapshotCache_DefaultsClock(t *testing.T) {
	c := NewSnapshotCache[int](time.Hour, nil)
	c.Set("k", 7)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}
