package room

// Registry maps room ids to rooms and maintains a reverse index from
// connection id to the rooms it belongs to. Roster changes go through
// Join and Leave so the two structures can never drift apart.
type Registry struct {
	rooms  map[string]*Room
	byConn map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		byConn: make(map[string]map[string]struct{}),
	}
}

// GetOrCreate returns the room with the given id, creating an empty one
// if it does not exist. It never fails.
func (reg *Registry) GetOrCreate(id string) *Room {
	if r, ok := reg.rooms[id]; ok {
		return r
	}
	r := newRoom(id)
	reg.rooms[id] = r
	return r
}

// Get returns the room with the given id, if present.
func (reg *Registry) Get(id string) (*Room, bool) {
	r, ok := reg.rooms[id]
	return r, ok
}

// Delete removes the room from the registry along with its index
// entries. Deleting an absent room is a no-op.
func (reg *Registry) Delete(id string) {
	r, ok := reg.rooms[id]
	if !ok {
		return
	}
	for _, p := range r.participants {
		reg.unindex(p.ID, id)
	}
	delete(reg.rooms, id)
}

// Len returns the number of rooms.
func (reg *Registry) Len() int { return len(reg.rooms) }

// Join adds the connection to the room, creating the room if needed.
// It returns the room and whether the roster actually changed (false on
// rejoin). The first joiner of a hostless room becomes host.
func (reg *Registry) Join(roomID, connID, name string) (*Room, bool) {
	r := reg.GetOrCreate(roomID)
	added := r.add(Participant{ID: connID, Name: name})
	if added {
		reg.index(connID, roomID)
	}
	return r, added
}

// Leave removes the connection from the room, re-electing the host if
// needed, and deletes the room once its roster is empty. It returns the
// room (still valid for reading even when deleted) and whether the
// connection was a participant.
func (reg *Registry) Leave(roomID, connID string) (*Room, bool) {
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, false
	}
	removed := r.remove(connID)
	if removed {
		reg.unindex(connID, roomID)
		if r.Empty() {
			delete(reg.rooms, roomID)
		}
	}
	return r, removed
}

// RoomsOf returns the ids of every room the connection belongs to.
// There is no meaningful order across rooms; callers must not rely on one.
func (reg *Registry) RoomsOf(connID string) []string {
	ids := reg.byConn[connID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	return out
}

func (reg *Registry) index(connID, roomID string) {
	ids := reg.byConn[connID]
	if ids == nil {
		ids = make(map[string]struct{})
		reg.byConn[connID] = ids
	}
	ids[roomID] = struct{}{}
}

func (reg *Registry) unindex(connID, roomID string) {
	ids := reg.byConn[connID]
	if ids == nil {
		return
	}
	delete(ids, roomID)
	if len(ids) == 0 {
		delete(reg.byConn, connID)
	}
}
