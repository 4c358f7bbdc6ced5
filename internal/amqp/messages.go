package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action describes what happened to a record.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionImported Action = "imported"
)

func (a Action) valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionImported:
		return true
	}
	return false
}

// RecordChangedMessage notifies consumers that the record store changed.
// It carries identifiers only; consumers reload what they need.
type RecordChangedMessage struct {
	ID          uuid.UUID `json:"id"`
	Action      Action    `json:"action"`
	RecordID    int64     `json:"record_id,omitempty"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Count       int       `json:"count,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRecordChangedMessage creates a message with a fresh id and timestamp.
func NewRecordChangedMessage(action Action, recordID int64, referenceID string) *RecordChangedMessage {
	return &RecordChangedMessage{
		ID:          uuid.New(),
		Action:      action,
		RecordID:    recordID,
		ReferenceID: referenceID,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.valid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.ID == uuid.Nil {
		return nil, fmt.Errorf("message id is required")
	}
	return &msg, nil
}
