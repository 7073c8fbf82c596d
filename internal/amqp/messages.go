package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is the mutation that produced an event.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
	ActionDeleted  Action = "deleted"
	ActionRPD      Action = "rpd_updated"
	ActionImported Action = "imported"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionApproved, ActionRejected, ActionDeleted, ActionRPD, ActionImported:
		return true
	}
	return false
}

// ItemEvent announces that a budget item changed. It carries only the id
// and version; consumers read the current state from storage.
type ItemEvent struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewItemEvent(id string, version int64, action Action) *ItemEvent {
	return &ItemEvent{
		ID:        id,
		Version:   version,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *ItemEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ItemEventFromJSON decodes and checks an event body.
func ItemEventFromJSON(data []byte) (*ItemEvent, error) {
	var msg ItemEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" && msg.Action != ActionImported {
		return nil, fmt.Errorf("item event without id")
	}
	if !msg.Action.IsValid() {
		return nil, fmt.Errorf("unknown item event action %q", msg.Action)
	}
	return &msg, nil
}
