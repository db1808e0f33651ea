package amqp

import (
	"testing"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeMessageFromJSON(t *testing.T) {
	event := domain.ChangeEvent{
		OwnerID:    "owner-1",
		Topics:     []domain.Topic{domain.TopicRecords, domain.TopicAggregate},
		Op:         domain.OpCreated,
		EntityID:   "rec-1",
		OccurredAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Origin:     "instance-a",
	}
	body, err := NewChangeMessage(event).ToJSON()
	require.NoError(t, err)

	msg, err := ChangeMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, event.OwnerID, msg.Event.OwnerID)
	assert.Equal(t, event.Topics, msg.Event.Topics)
	assert.Equal(t, event.Op, msg.Event.Op)
	assert.Equal(t, event.EntityID, msg.Event.EntityID)
	assert.Equal(t, event.Origin, msg.Event.Origin)
	assert.True(t, event.OccurredAt.Equal(msg.Event.OccurredAt))
	assert.Equal(t, changeMessageVersion, msg.SchemaVersion)
}

func TestChangeMessageFromJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "unknown version", body: `{"schemaVersion":99,"event":{"ownerId":"o"}}`},
		{name: "missing owner", body: `{"schemaVersion":1,"event":{"op":"created"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChangeMessageFromJSON([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
