package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
)

// changeMessageVersion is bumped whenever ChangeMessage changes shape.
const changeMessageVersion = 1

// ChangeMessage carries one store change event between instances. It holds no record data:
// receivers recompute their live queries from the shared store.
type ChangeMessage struct {
	SchemaVersion int                `json:"schemaVersion"`
	Event         domain.ChangeEvent `json:"event"`
	PublishedAt   time.Time          `json:"publishedAt"`
}

// NewChangeMessage wraps event for publishing.
func NewChangeMessage(event domain.ChangeEvent) *ChangeMessage {
	return &ChangeMessage{
		SchemaVersion: changeMessageVersion,
		Event:         event,
		PublishedAt:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects ones this build cannot interpret.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SchemaVersion != changeMessageVersion {
		return nil, fmt.Errorf("unsupported change message version %d", msg.SchemaVersion)
	}
	if msg.Event.OwnerID == "" {
		return nil, fmt.Errorf("change message without owner")
	}
	return &msg, nil
}
