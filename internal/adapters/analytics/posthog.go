// Package analytics forwards ledger change events to PostHog as product analytics.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	portssvc "github.com/SscSPs/ledger_engine/internal/core/ports/services"
	"github.com/posthog/posthog-go"
)

const defaultEndpoint = "https://eu.i.posthog.com"

// Tracker publishes one capture per change event. Events are keyed by owner id and never carry amounts.
type Tracker struct {
	client posthog.Client
	logger *slog.Logger
}

var _ portssvc.ChangeRelay = (*Tracker)(nil)

// NewTracker creates a tracker for apiKey. An empty endpoint selects PostHog's EU cloud.
func NewTracker(apiKey, endpoint string, logger *slog.Logger) (*Tracker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("posthog api key is empty")
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, fmt.Errorf("create posthog client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{client: client, logger: logger.With(slog.String("component", "analytics"))}, nil
}

// EventName derives the capture name, e.g. "records created".
func EventName(event domain.ChangeEvent) string {
	if len(event.Topics) == 0 {
		return "ledger " + string(event.Op)
	}
	return string(event.Topics[0]) + " " + string(event.Op)
}

// Publish enqueues the event. Delivery is batched by the client.
func (t *Tracker) Publish(ctx context.Context, event domain.ChangeEvent) error {
	topics := make([]string, len(event.Topics))
	for i, topic := range event.Topics {
		topics[i] = string(topic)
	}
	props := posthog.NewProperties().
		Set("op", string(event.Op)).
		Set("topics", strings.Join(topics, ","))
	if event.EntityID != "" {
		props.Set("entity_id", event.EntityID)
	}

	name := EventName(event)
	t.logger.DebugContext(ctx, "Enqueueing analytics event", slog.String("owner_id", event.OwnerID), slog.String("event", name))
	return t.client.Enqueue(posthog.Capture{
		DistinctId: event.OwnerID,
		Event:      name,
		Timestamp:  event.OccurredAt,
		Properties: props,
	})
}

// Close flushes pending events.
func (t *Tracker) Close() error {
	return t.client.Close()
}
