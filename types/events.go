package types

import (
	"errors"
	"time"
)

type EventType string

const (
	EventTypeFeedbackSubmitted EventType = "feedback.submitted"
)

// Event is published on the change feed so that every instance can bump its
// refresh signal when any instance persists feedback.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	InstanceID string    `json:"instanceId"`
	RecordID   string    `json:"recordId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (e Event) Validate() error {
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.InstanceID == "" {
		return errors.New("event instance id is required")
	}
	return nil
}
