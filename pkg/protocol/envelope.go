package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies the kind of message carried by an Envelope.
type EventType string

// Inbound event types (client → server).
const (
	EventJoinRoom  EventType = "join-room"
	EventLeaveRoom EventType = "leave-room"
	EventStartCall EventType = "start-call"
	EventSignal    EventType = "signal"
)

// Outbound event types (server → client).
const (
	EventJoined          EventType = "joined"
	EventLobbyUpdated    EventType = "lobby-updated"
	EventPeerJoined      EventType = "peer-joined"
	EventParticipantLeft EventType = "participant-left"
	EventCallStarted     EventType = "call-started"
	EventError           EventType = "error"
)

// ErrEmptyMessage is returned when decoding a zero-length frame.
var ErrEmptyMessage = errors.New("protocol: empty message")

// ErrMessageTooLarge is returned when a frame exceeds MaxMessageSize.
var ErrMessageTooLarge = errors.New("protocol: message too large")

// ErrMissingType is returned when an envelope has no type tag.
var ErrMissingType = errors.New("protocol: missing type")

// Envelope wraps every message on the wire. The payload is kept raw so the
// relay can forward opaque signal data without interpreting it.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEnvelope parses a wire frame into an Envelope.
// It enforces MaxMessageSize and requires a non-empty type tag.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(data) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}
	return &env, nil
}

// Decode unmarshals the envelope payload into v.
// An absent payload decodes into the zero value.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EncodeEnvelope marshals a payload into a framed wire message.
// A nil payload produces an envelope with no payload field.
func EncodeEnvelope(t EventType, payload any) ([]byte, error) {
	env := Envelope{Type: t}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode %s payload: %w", t, err)
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode envelope: %w", err)
	}
	return data, nil
}
