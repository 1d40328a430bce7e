package relay

import "errors"

// Sentinel errors classifying why a command produced no state change.
var (
	// ErrMalformedRequest is returned when a required field (room id,
	// signal target) is missing. Malformed requests are dropped without
	// notifying anyone.
	ErrMalformedRequest = errors.New("relay: malformed request")

	// ErrRoomNotFound is returned when a command references a room that
	// is not in the registry.
	ErrRoomNotFound = errors.New("relay: room not found")

	// ErrNotHost is returned when a connection other than the room's
	// host tries to start the call. It is reported to the requester
	// only, never broadcast.
	ErrNotHost = errors.New("relay: not host")
)
