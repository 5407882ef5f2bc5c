// Package protocol defines the websocket events and REST payloads exchanged
// between watch-party clients and the room server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the wire frame for every websocket message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Event interface {
	EventType() string
}

// Encode wraps ev into an envelope.
func Encode(ev Event) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", ev.EventType(), err)
	}
	return Envelope{Type: ev.EventType(), Payload: payload}, nil
}

type decoder[E Event] func(json.RawMessage) (E, error)

func decodeAs[T interface{ EventType() string }, E Event](raw json.RawMessage) (E, error) {
	var payload T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &payload); err != nil {
			var zero E
			return zero, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}
	ev, ok := any(payload).(E)
	if !ok {
		var zero E
		return zero, fmt.Errorf("%w: %T", ErrInvalidPayload, payload)
	}
	return ev, nil
}
