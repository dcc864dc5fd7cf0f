package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity names in change messages.
const (
	EntityStudent     = "student"
	EntitySchedule    = "schedule"
	EntityTransaction = "transaction"
	EntityCategory    = "category"
)

// Operations in change messages.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// EntityChangeMessage tells the sync worker that a row changed.
// It carries only the entity and ID; the worker re-fetches the full
// data set, so a lost detail cannot leave the mirror subtly stale.
type EntityChangeMessage struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntityChangeMessage(entity, id, op string) *EntityChangeMessage {
	return &EntityChangeMessage{
		Entity:    entity,
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *EntityChangeMessage) Validate() error {
	switch m.Entity {
	case EntityStudent, EntitySchedule, EntityTransaction, EntityCategory:
	default:
		return fmt.Errorf("unknown entity %q", m.Entity)
	}
	switch m.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	return nil
}

func (m *EntityChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntityChangeMessageFromJSON(data []byte) (*EntityChangeMessage, error) {
	var msg EntityChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
