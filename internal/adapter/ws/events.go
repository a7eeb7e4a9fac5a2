package ws

import (
	"encoding/json"
	"fmt"
)

// Event type constants for WebSocket messages.
const (
	EventMessage = "message"
	EventJoin    = "join"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinEvent is sent on the chat stream when a user joins the room.
type JoinEvent struct {
	Username string `json:"username"`
}

// encode marshals a typed payload into an envelope frame.
func encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal ws event payload: %w", err)
	}
	return json.Marshal(Message{Type: eventType, Payload: data})
}
