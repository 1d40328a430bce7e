package room

// Participant is a member of a room.
type Participant struct {
	// ID is the opaque connection identifier assigned by the transport.
	ID string

	// Name is the display name, never empty once the participant is added.
	Name string
}

// Room is a named grouping of connections. The roster keeps insertion
// order with no duplicate connection ids, and the host, when set, is
// always a roster member.
type Room struct {
	id           string
	participants []Participant
	hostID       string
	started      bool
}

func newRoom(id string) *Room {
	return &Room{id: id}
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// HostID returns the host's connection id, or "" if the room has no host.
func (r *Room) HostID() string { return r.hostID }

// Started reports whether the host has started the call.
func (r *Room) Started() bool { return r.started }

// Len returns the number of participants.
func (r *Room) Len() int { return len(r.participants) }

// Empty reports whether the roster is empty.
func (r *Room) Empty() bool { return len(r.participants) == 0 }

// Has reports whether the connection is a participant of the room.
func (r *Room) Has(connID string) bool {
	for _, p := range r.participants {
		if p.ID == connID {
			return true
		}
	}
	return false
}

// Participants returns a copy of the roster in insertion order.
func (r *Room) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// add appends a participant if the connection is not already a member,
// and assigns the host if the room has none.
func (r *Room) add(p Participant) bool {
	if r.hostID == "" {
		r.hostID = p.ID
	}
	if r.Has(p.ID) {
		return false
	}
	r.participants = append(r.participants, p)
	return true
}

// remove deletes the participant and re-elects the host if the departed
// connection held it: the new host is the first remaining participant in
// roster order, or nobody if the roster is now empty.
func (r *Room) remove(connID string) bool {
	idx := -1
	for i, p := range r.participants {
		if p.ID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)

	if r.hostID == connID {
		if len(r.participants) > 0 {
			r.hostID = r.participants[0].ID
		} else {
			r.hostID = ""
		}
	}
	return true
}

// Start marks the room as started. Starting an already-started room is
// a no-op, not an error.
func (r *Room) Start() {
	r.started = true
}
