package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is the envelope pushed through an agent inbox.
// The runtime only needs envelopes to be countable and removable; the
// remaining fields exist so handlers can route and decode them.
type Message struct {
	// ID is a unique identifier for this envelope, automatically generated.
	ID string `json:"id"`

	// Type identifies the protocol of the envelope (e.g. "dummy", "fipa").
	Type string `json:"type"`

	// Sender is the name of the agent that produced the envelope.
	Sender string `json:"sender,omitempty"`

	// To is the name of the agent the envelope is addressed to.
	To string `json:"to,omitempty"`

	// Payload contains the message data as a JSON string.
	Payload string `json:"payload"`

	// Timestamp is the RFC 3339 timestamp when the envelope was created.
	Timestamp string `json:"timestamp"`
}

// NewMessage creates a new envelope with the given type and payload.
// The payload is serialized to JSON; a unique ID and timestamp are generated.
func NewMessage(msgType string, payload interface{}) *Message {
	payloadJSON, _ := json.Marshal(payload)
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   string(payloadJSON),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Addressed sets sender and recipient and returns the envelope for chaining.
func (m *Message) Addressed(sender, to string) *Message {
	m.Sender = sender
	m.To = to
	return m
}

// UnmarshalPayload deserializes the message payload into the provided value.
func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == "" {
		return fmt.Errorf("message payload is empty")
	}
	return json.Unmarshal([]byte(m.Payload), v)
}

// String returns a human-readable representation of the message for debugging.
func (m *Message) String() string {
	return fmt.Sprintf("Message{ID:%s, Type:%s, Sender:%s, To:%s}", m.ID, m.Type, m.Sender, m.To)
}
