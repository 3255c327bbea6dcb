// Package events defines the envelope pushed to websocket clients and the
// payloads it carries.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of round event
type EventType string

const (
	EventTypeProgress     EventType = "Progress"
	EventTypeRoundStarted EventType = "RoundStarted"
	EventTypeRoundEnded   EventType = "RoundEnded"
)

// RoundEvent is the envelope for every server-to-client message
type RoundEvent struct {
	ID        string          `json:"id"`
	RoundID   string          `json:"round_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewRoundEvent marshals payload into a fresh envelope.
func NewRoundEvent(roundID uuid.UUID, eventType EventType, at time.Time, payload any) (*RoundEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &RoundEvent{
		ID:        uuid.NewString(),
		RoundID:   roundID.String(),
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParseEventPayload parses event data into the matching payload struct.
// Unknown types yield (nil, nil).
func ParseEventPayload(event *RoundEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeProgress:
		var payload ProgressPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundStarted:
		var payload RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundEnded:
		var payload RoundEndedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}
