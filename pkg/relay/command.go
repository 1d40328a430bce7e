package relay

import (
	"encoding/json"

	"github.com/beacon-dev/beacon/pkg/protocol"
)

// Command is one unit of work for the router. The set of commands is
// closed; every implementation lives in this file.
type Command interface {
	// Event returns the wire event name the command corresponds to,
	// used for logging, metrics, and trace spans.
	Event() string
}

// Join adds a connection to a room.
type Join struct {
	Conn string // originating connection id
	Room string
	Name string // optional display name
}

// Leave removes a connection from a room.
type Leave struct {
	Conn string
	Room string
}

// StartCall transitions a room into the started state. Only the room's
// host is allowed to issue it.
type StartCall struct {
	Conn string
	Room string
}

// Signal relays an opaque payload to another connection. The target does
// not have to share a room with the sender.
type Signal struct {
	Conn string // sender
	To   string // target connection id
	Data json.RawMessage
}

// Disconnect removes a connection from every room it belongs to. Issued
// by the transport when the underlying connection goes away.
type Disconnect struct {
	Conn string
}

func (Join) Event() string      { return string(protocol.EventJoinRoom) }
func (Leave) Event() string     { return string(protocol.EventLeaveRoom) }
func (StartCall) Event() string { return string(protocol.EventStartCall) }
func (Signal) Event() string    { return string(protocol.EventSignal) }
func (Disconnect) Event() string { return "disconnect" }
