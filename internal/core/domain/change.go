package domain

import "time"

// Topic groups change events by the kind of state they touch.
type Topic string

const (
	TopicRecords   Topic = "records"
	TopicBudgets   Topic = "budgets"
	TopicAggregate Topic = "aggregate"
)

// ChangeOp names the mutation that produced an event.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent is emitted after every successful store mutation.
type ChangeEvent struct {
	OwnerID    string    `json:"ownerId"`
	Topics     []Topic   `json:"topics"`
	Op         ChangeOp  `json:"op"`
	EntityID   string    `json:"entityId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	// Origin identifies the instance that performed the write.
	Origin string `json:"origin,omitempty"`
}

// Touches reports whether the event affects any of the given topics.
func (e ChangeEvent) Touches(topics []Topic) bool {
	for _, t := range e.Topics {
		for _, want := range topics {
			if t == want {
				return true
			}
		}
	}
	return false
}
