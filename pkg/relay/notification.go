package relay

import (
	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/room"
)

// Kind classifies who a notification is meant for.
type Kind uint8

const (
	// KindDirect is a reply to the requesting connection.
	KindDirect Kind = iota

	// KindRoomBroadcast targets every current participant of a room.
	KindRoomBroadcast

	// KindRoomExceptSender targets every participant but the sender.
	KindRoomExceptSender

	// KindDirected targets an arbitrary connection id, possibly outside
	// the sender's rooms. Used by the signal relay.
	KindDirected
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindRoomBroadcast:
		return "room"
	case KindRoomExceptSender:
		return "room_except_sender"
	case KindDirected:
		return "directed"
	default:
		return "unknown"
	}
}

// Notification is an outbound delivery intent. Targets are resolved
// connection ids captured at dispatch time; if a target is no longer
// live when the transport delivers, the message is silently dropped.
type Notification struct {
	Kind    Kind
	Room    string // room id for room-scoped kinds, "" otherwise
	Targets []string
	Event   protocol.EventType
	Payload any
}

func direct(conn string, event protocol.EventType, payload any) Notification {
	return Notification{
		Kind:    KindDirect,
		Targets: []string{conn},
		Event:   event,
		Payload: payload,
	}
}

func directed(conn string, event protocol.EventType, payload any) Notification {
	return Notification{
		Kind:    KindDirected,
		Targets: []string{conn},
		Event:   event,
		Payload: payload,
	}
}

func roomBroadcast(r *room.Room, event protocol.EventType, payload any) Notification {
	ps := r.Participants()
	targets := make([]string, 0, len(ps))
	for _, p := range ps {
		targets = append(targets, p.ID)
	}
	return Notification{
		Kind:    KindRoomBroadcast,
		Room:    r.ID(),
		Targets: targets,
		Event:   event,
		Payload: payload,
	}
}

func roomExcept(r *room.Room, sender string, event protocol.EventType, payload any) Notification {
	ps := r.Participants()
	targets := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.ID != sender {
			targets = append(targets, p.ID)
		}
	}
	return Notification{
		Kind:    KindRoomExceptSender,
		Room:    r.ID(),
		Targets: targets,
		Event:   event,
		Payload: payload,
	}
}

// snapshot converts a room into its wire representation.
func snapshot(r *room.Room) protocol.RoomSnapshot {
	ps := r.Participants()
	out := make([]protocol.Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, protocol.Participant{ID: p.ID, Name: p.Name})
	}
	return protocol.RoomSnapshot{
		Room:         r.ID(),
		Participants: out,
		Host:         r.HostID(),
		Started:      r.Started(),
	}
}
