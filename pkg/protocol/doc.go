// Package protocol defines the wire format for the Beacon signaling relay.
//
// All traffic is JSON over WebSocket text frames. Every message is wrapped
// in an Envelope carrying a type tag and a raw payload:
//
//	┌────────────────────────────────────────────────┐
//	│ {"type": "join-room", "payload": {...}}        │
//	└────────────────────────────────────────────────┘
//
// # Inbound events (client → server)
//
//   - join-room: enter a room, optionally with a display name
//   - leave-room: leave a room
//   - start-call: host-only transition of a room into the started state
//   - signal: opaque point-to-point negotiation payload
//
// # Outbound events (server → client)
//
//   - joined: direct reply to a join with the full room snapshot
//   - lobby-updated: room snapshot broadcast to the other members
//   - peer-joined: lightweight announcement carrying the new connection id
//   - participant-left: announcement carrying the departed connection id
//   - call-started: broadcast carrying the roster at call start
//   - signal: relayed negotiation payload with the sender's connection id
//   - error: error code and message for the requester only
//
// Signal payloads are opaque: the relay never inspects or validates their
// shape. Decoding stops at the envelope and the typed payload headers.
//
// # Usage Example
//
//	// Decode an inbound message
//	env, err := DecodeEnvelope(data)
//	if err != nil {
//	    // Handle error
//	}
//	switch env.Type {
//	case EventJoinRoom:
//	    var jr JoinRoom
//	    err = env.Decode(&jr)
//	}
//
//	// Encode an outbound message
//	data, err := EncodeEnvelope(EventPeerJoined, PeerJoined{ID: connID})
package protocol
