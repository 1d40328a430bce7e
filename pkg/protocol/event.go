package protocol

import "encoding/json"

// JoinRoom asks the relay to add the connection to a room.
// Name is optional; the relay generates a placeholder when it is empty.
type JoinRoom struct {
	Room string `json:"room"`
	Name string `json:"name,omitempty"`
}

// LeaveRoom asks the relay to remove the connection from a room.
type LeaveRoom struct {
	Room string `json:"room"`
}

// StartCall asks the relay to transition a room into the started state.
// Only the room's host may do this.
type StartCall struct {
	Room string `json:"room"`
}

// Signal carries an opaque negotiation payload to another connection.
// Data is never inspected by the relay.
type Signal struct {
	To   string          `json:"to"`
	Data json.RawMessage `json:"data,omitempty"`
}
