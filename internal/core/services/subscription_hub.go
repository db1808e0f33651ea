package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/SscSPs/ledger_engine/internal/middleware"
	"github.com/google/uuid"
)

const defaultSubscriptionMaxBackoff = 30 * time.Second

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithInstanceID names this process in change events it originates.
func WithInstanceID(id string) HubOption {
	return func(h *Hub) {
		if id != "" {
			h.instanceID = id
		}
	}
}

// WithMaxBackoff caps the delay between failed recomputes of one subscription.
func WithMaxBackoff(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.maxBackoff = d
		}
	}
}

// Hub routes change events to live queries. Every subscription owns one goroutine that
// recomputes its query from the store and hands the result to the callback. Wake-ups that
// arrive while a recompute is running collapse into one, and results are delivered in the
// order they were computed, so a callback never sees an older state after a newer one.
type Hub struct {
	instanceID string
	maxBackoff time.Duration

	relayMu sync.RWMutex
	relays  []portssvc.ChangeRelay

	mu     sync.Mutex
	subs   map[string]map[uint64]*subscription
	nextID uint64
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		instanceID: uuid.NewString(),
		maxBackoff: defaultSubscriptionMaxBackoff,
		subs:       make(map[string]map[uint64]*subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ portssvc.ChangeNotifier = (*Hub)(nil)

// InstanceID identifies this hub in change events.
func (h *Hub) InstanceID() string {
	return h.instanceID
}

// AddRelay makes Notify forward locally originated events to r, after local dispatch.
// Relays run in the order they were added.
func (h *Hub) AddRelay(r portssvc.ChangeRelay) {
	h.relayMu.Lock()
	h.relays = append(h.relays, r)
	h.relayMu.Unlock()
}

type subscription struct {
	id      uint64
	ownerID string
	topics  []domain.Topic
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once

	mu     sync.Mutex
	closed bool

	// deliverMu is held from the closed check until the callback returns.
	deliverMu  sync.Mutex
	inCallback atomic.Bool
}

// signal requests a recompute. It never blocks: a pending request already covers this one.
func (s *subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// drain drops a pending request that the upcoming recompute will cover anyway.
func (s *subscription) drain() {
	select {
	case <-s.wake:
	default:
	}
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Watch registers a live query. compute is evaluated right away and again after every change
// event for ownerID that touches one of topics; each successful result is passed to cb.
// The subscription ends when the returned Unsubscribe is called or ctx is done. Once
// Unsubscribe has returned, no new callback invocation begins.
func Watch[T any](ctx context.Context, h *Hub, ownerID string, topics []domain.Topic, compute func(context.Context) (T, error), cb func(T)) portssvc.Unsubscribe {
	sub := h.register(ctx, ownerID, topics)
	if sub == nil {
		return func() {}
	}
	unsubscribe := func() {
		sub.once.Do(func() {
			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
			sub.cancel()
			h.remove(sub)
		})
		// Wait out a delivery that passed its closed check but has not reached cb yet.
		// A callback that is already running, possibly the caller itself, is left alone.
		if !sub.inCallback.Load() {
			sub.deliverMu.Lock()
			sub.deliverMu.Unlock()
		}
	}

	deliver := func(ctx context.Context) error {
		sub.drain()
		value, err := compute(ctx)
		if err != nil {
			return err
		}
		sub.deliverMu.Lock()
		defer sub.deliverMu.Unlock()
		if sub.isClosed() {
			return nil
		}
		sub.inCallback.Store(true)
		defer sub.inCallback.Store(false)
		cb(value)
		return nil
	}

	go func() {
		defer h.wg.Done()
		defer unsubscribe()
		h.run(sub, deliver)
	}()
	return unsubscribe
}

func (h *Hub) register(ctx context.Context, ownerID string, topics []domain.Topic) *subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.nextID++
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		id:      h.nextID,
		ownerID: ownerID,
		topics:  topics,
		wake:    make(chan struct{}, 1),
		ctx:     subCtx,
		cancel:  cancel,
	}
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[uint64]*subscription)
	}
	h.subs[ownerID][sub.id] = sub
	h.wg.Add(1)
	return sub
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	owned := h.subs[sub.ownerID]
	delete(owned, sub.id)
	if len(owned) == 0 {
		delete(h.subs, sub.ownerID)
	}
}

func (h *Hub) run(sub *subscription, deliver func(context.Context) error) {
	logger := middleware.GetLoggerFromCtx(sub.ctx).With(
		slog.String("component", "subscription_hub"),
		slog.String("owner_id", sub.ownerID),
		slog.Uint64("subscription_id", sub.id))

	if !h.deliverWithRetry(sub, deliver, logger) {
		return
	}
	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.wake:
			if !h.deliverWithRetry(sub, deliver, logger) {
				return
			}
		}
	}
}

// deliverWithRetry keeps recomputing with capped exponential backoff until one attempt
// succeeds. It reports false once the subscription is over.
func (h *Hub) deliverWithRetry(sub *subscription, deliver func(context.Context) error, logger *slog.Logger) bool {
	for attempt := 0; ; attempt++ {
		if sub.ctx.Err() != nil || sub.isClosed() {
			return false
		}
		err := deliver(sub.ctx)
		if err == nil {
			return true
		}
		if sub.ctx.Err() != nil {
			return false
		}
		delay := backoffDelay(attempt, h.maxBackoff)
		logger.Warn("Live query recompute failed, retrying",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_in", delay))
		timer := time.NewTimer(delay)
		select {
		case <-sub.ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// Notify wakes every local subscription the event is relevant to and forwards events
// that originated here to every relay.
func (h *Hub) Notify(ctx context.Context, event domain.ChangeEvent) {
	if event.Origin == "" {
		event.Origin = h.instanceID
	}
	h.dispatch(event)

	if event.Origin != h.instanceID {
		return
	}
	h.relayMu.RLock()
	relays := h.relays
	h.relayMu.RUnlock()
	for _, relay := range relays {
		if err := relay.Publish(ctx, event); err != nil {
			middleware.GetLoggerFromCtx(ctx).Warn("Failed to relay change event",
				slog.String("component", "subscription_hub"),
				slog.String("owner_id", event.OwnerID),
				slog.String("error", err.Error()))
		}
	}
}

// HandleRemote applies an event received from another instance. Echoes of our own events are ignored.
func (h *Hub) HandleRemote(ctx context.Context, event domain.ChangeEvent) error {
	if event.Origin == h.instanceID {
		return nil
	}
	h.dispatch(event)
	return nil
}

func (h *Hub) dispatch(event domain.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[event.OwnerID] {
		if event.Touches(sub.topics) {
			sub.signal()
		}
	}
}

// SubscriberCount returns the number of live subscriptions of ownerID.
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}

// Close ends every subscription and waits for their goroutines to exit.
// Watch calls made afterwards return an inert subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscription, 0)
	for _, owned := range h.subs {
		for _, sub := range owned {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	h.wg.Wait()
}
