package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/SscSPs/ledger_engine/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock ChangeRelay ---
type MockChangeRelay struct {
	mock.Mock
}

func (m *MockChangeRelay) Publish(ctx context.Context, event domain.ChangeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// collector records callback values so tests can wait on them.
type collector[T any] struct {
	mu     sync.Mutex
	values []T
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

func (c *collector[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

func (c *collector[T]) last() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[len(c.values)-1]
}

func recordsChanged(ownerID string) domain.ChangeEvent {
	return domain.ChangeEvent{OwnerID: ownerID, Topics: []domain.Topic{domain.TopicRecords}, Op: domain.OpCreated}
}

func TestWatch_DeliversInitialValueAndUpdates(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	var version atomic.Int64
	got := &collector[int64]{}
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int64, error) { return version.Load(), nil }, got.add)
	defer unsubscribe()

	require.Eventually(t, func() bool { return got.len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), got.last())

	version.Store(1)
	hub.Notify(context.Background(), recordsChanged("owner-1"))
	require.Eventually(t, func() bool { return got.len() > 0 && got.last() == 1 }, time.Second, time.Millisecond)
}

func TestWatch_IgnoresUnrelatedEvents(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	var computes atomic.Int32
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicBudgets},
		func(context.Context) (int32, error) { return computes.Add(1), nil }, func(int32) {})
	defer unsubscribe()
	require.Eventually(t, func() bool { return computes.Load() == 1 }, time.Second, time.Millisecond)

	hub.Notify(context.Background(), recordsChanged("owner-1"))
	hub.Notify(context.Background(), domain.ChangeEvent{OwnerID: "owner-2", Topics: []domain.Topic{domain.TopicBudgets}})

	assert.Never(t, func() bool { return computes.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestWatch_CoalescesBurstsAndKeepsOrder(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	var version atomic.Int64
	release := make(chan struct{})
	var first atomic.Bool
	got := &collector[int64]{}
	compute := func(context.Context) (int64, error) {
		if first.CompareAndSwap(false, true) {
			<-release
		}
		return version.Load(), nil
	}
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords}, compute, got.add)
	defer unsubscribe()

	for i := 1; i <= 50; i++ {
		version.Store(int64(i))
		hub.Notify(context.Background(), recordsChanged("owner-1"))
	}
	close(release)

	require.Eventually(t, func() bool { return got.len() > 0 && got.last() == 50 }, time.Second, time.Millisecond)
	values := got.snapshot()
	assert.LessOrEqual(t, len(values), 3, "a burst collapses into at most one extra recompute")
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "a newer state is never followed by an older one")
	}
}

func TestWatch_Unsubscribe(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	var calls atomic.Int32
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int, error) { return 1, nil }, func(int) { calls.Add(1) })
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, hub.SubscriberCount("owner-1"))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.SubscriberCount("owner-1"))

	after := calls.Load()
	for range 10 {
		hub.Notify(context.Background(), recordsChanged("owner-1"))
	}
	assert.Never(t, func() bool { return calls.Load() > after }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestWatch_UnsubscribeFromInsideCallback(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	unsubCh := make(chan func(), 1)
	done := make(chan struct{})
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int, error) { return 1, nil },
		func(int) {
			(<-unsubCh)()
			close(done)
		})
	unsubCh <- unsubscribe

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unsubscribe called from the callback did not return")
	}
	assert.Equal(t, 0, hub.SubscriberCount("owner-1"))
}

func TestWatch_NoCallbackAfterUnsubscribeReturns(t *testing.T) {
	for i := 0; i < 5; i++ {
		hub := services.NewHub()

		var calls atomic.Int32
		unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
			func(context.Context) (int, error) { return 1, nil }, func(int) { calls.Add(1) })
		require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)

		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
					hub.Notify(context.Background(), recordsChanged("owner-1"))
				}
			}
		}()
		time.Sleep(2 * time.Millisecond)

		unsubscribe()
		after := calls.Load()
		assert.Never(t, func() bool { return calls.Load() != after }, 20*time.Millisecond, time.Millisecond)
		close(stop)
		hub.Close()
	}
}

func TestWatch_ContextCancelEndsSubscription(t *testing.T) {
	hub := services.NewHub()
	t.Cleanup(hub.Close)

	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := services.Watch(ctx, hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int, error) { return 1, nil }, func(int) {})
	defer unsubscribe()

	cancel()
	assert.Eventually(t, func() bool { return hub.SubscriberCount("owner-1") == 0 }, time.Second, time.Millisecond)
}

func TestWatch_RetriesFailedComputeWithBackoff(t *testing.T) {
	hub := services.NewHub(services.WithMaxBackoff(10 * time.Millisecond))
	t.Cleanup(hub.Close)

	var attempts atomic.Int32
	got := &collector[string]{}
	compute := func(context.Context) (string, error) {
		if attempts.Add(1) < 3 {
			return "", apperrors.ErrStoreUnavailable
		}
		return "ok", nil
	}
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords}, compute, got.add)
	defer unsubscribe()

	require.Eventually(t, func() bool { return got.len() == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, "ok", got.last())
	assert.Equal(t, int32(3), attempts.Load())
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	hub := services.NewHub()
	for range 3 {
		services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
			func(context.Context) (int, error) { return 0, nil }, func(int) {})
	}
	hub.Close()
	assert.Equal(t, 0, hub.SubscriberCount("owner-1"))

	var called atomic.Bool
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int, error) { return 0, nil }, func(int) { called.Store(true) })
	unsubscribe()
	assert.Never(t, called.Load, 30*time.Millisecond, 5*time.Millisecond)
}

func TestHub_RelaysLocalEvents(t *testing.T) {
	hub := services.NewHub(services.WithInstanceID("node-a"))
	t.Cleanup(hub.Close)
	relay := new(MockChangeRelay)
	tracker := new(MockChangeRelay)
	hub.AddRelay(relay)
	hub.AddRelay(tracker)

	local := mock.MatchedBy(func(e domain.ChangeEvent) bool {
		return e.Origin == "node-a" && e.OwnerID == "owner-1"
	})
	relay.On("Publish", mock.Anything, local).Return(errors.New("broker down")).Once()
	tracker.On("Publish", mock.Anything, local).Return(nil).Once()

	hub.Notify(context.Background(), recordsChanged("owner-1"))

	foreign := recordsChanged("owner-1")
	foreign.Origin = "node-b"
	hub.Notify(context.Background(), foreign)

	relay.AssertExpectations(t)
	tracker.AssertExpectations(t)
}

func TestHub_HandleRemote(t *testing.T) {
	hub := services.NewHub(services.WithInstanceID("node-a"))
	t.Cleanup(hub.Close)

	var computes atomic.Int32
	unsubscribe := services.Watch(context.Background(), hub, "owner-1", []domain.Topic{domain.TopicRecords},
		func(context.Context) (int32, error) { return computes.Add(1), nil }, func(int32) {})
	defer unsubscribe()
	require.Eventually(t, func() bool { return computes.Load() == 1 }, time.Second, time.Millisecond)

	echo := recordsChanged("owner-1")
	echo.Origin = "node-a"
	require.NoError(t, hub.HandleRemote(context.Background(), echo))
	assert.Never(t, func() bool { return computes.Load() > 1 }, 30*time.Millisecond, 5*time.Millisecond)

	remote := recordsChanged("owner-1")
	remote.Origin = "node-b"
	require.NoError(t, hub.HandleRemote(context.Background(), remote))
	assert.Eventually(t, func() bool { return computes.Load() == 2 }, time.Second, time.Millisecond)
}
