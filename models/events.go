package models

import (
	"encoding/json"
)

// Event types exchanged on the push channel.
const (
	EventNewMessage = "new-message"
	EventPresence   = "presence"
	EventPing       = "ping"

	EventCallUser     = "call-user"
	EventCallIncoming = "call-incoming"
	EventCallAccepted = "call-accepted"
	EventCallDeclined = "call-declined"
	EventEndCall      = "end-call"
)

// Event is the wire envelope for everything crossing the push channel.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event of the given type.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	if payload == nil {
		return Event{Type: eventType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// SignalPayload bootstraps a direct peer media connection. SignalData is
// opaque to the client; it is handed to the media layer verbatim.
type SignalPayload struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	SignalData json.RawMessage `json:"signal_data,omitempty"`
}

// PresencePayload reports a user's online status change.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
