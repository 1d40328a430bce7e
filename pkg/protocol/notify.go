package protocol

import "encoding/json"

// Participant is a roster entry in a room snapshot.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomSnapshot is the full observable state of a room: id, ordered roster,
// host connection id, and the started flag. It is the payload of both the
// joined reply and the lobby-updated broadcast.
type RoomSnapshot struct {
	Room         string        `json:"room"`
	Participants []Participant `json:"participants"`
	Host         string        `json:"host,omitempty"`
	Started      bool          `json:"started"`
}

// PeerJoined announces a new member to the rest of the room.
type PeerJoined struct {
	ID string `json:"id"`
}

// ParticipantLeft announces a departed member to the rest of the room.
type ParticipantLeft struct {
	ID string `json:"id"`
}

// CallStarted announces that the host started the call, carrying the
// ordered roster at that moment.
type CallStarted struct {
	Room         string        `json:"room"`
	Participants []Participant `json:"participants"`
}

// SignalDelivery is a relayed signal with the sender's connection id.
type SignalDelivery struct {
	From string          `json:"from"`
	Data json.RawMessage `json:"data,omitempty"`
}
