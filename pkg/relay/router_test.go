package relay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/room"
)

func newTestRouter() (*Router, *room.Registry) {
	reg := room.NewRegistry()
	return New(reg, nil), reg
}

func findNote(t *testing.T, notes []Notification, event protocol.EventType) Notification {
	t.Helper()
	for _, n := range notes {
		if n.Event == event {
			return n
		}
	}
	t.Fatalf("no %s notification in %v", event, notes)
	return Notification{}
}

func countNotes(notes []Notification, event protocol.EventType) int {
	count := 0
	for _, n := range notes {
		if n.Event == event {
			count++
		}
	}
	return count
}

func TestJoinFirstBecomesHost(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	notes := rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})

	joined := findNote(t, notes, protocol.EventJoined)
	if joined.Kind != KindDirect {
		t.Errorf("joined Kind = %v, want direct", joined.Kind)
	}
	if len(joined.Targets) != 1 || joined.Targets[0] != "a" {
		t.Errorf("joined Targets = %v, want [a]", joined.Targets)
	}

	snap := joined.Payload.(protocol.RoomSnapshot)
	if snap.Host != "a" {
		t.Errorf("Host = %q, want a", snap.Host)
	}
	if snap.Started {
		t.Error("Started should be false")
	}

	// First join has no other members, so no broadcasts.
	if n := countNotes(notes, protocol.EventLobbyUpdated); n != 0 {
		t.Errorf("lobby-updated count = %d, want 0", n)
	}

	r, ok := reg.Get("lobby")
	if !ok {
		t.Fatal("room should exist")
	}
	if r.HostID() != "a" {
		t.Errorf("HostID = %q, want a", r.HostID())
	}
}

func TestJoinSecondNotifiesFirst(t *testing.T) {
	rt, _ := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	notes := rt.Dispatch(ctx, Join{Conn: "b", Room: "lobby", Name: "Bob"})

	joined := findNote(t, notes, protocol.EventJoined)
	snap := joined.Payload.(protocol.RoomSnapshot)
	if snap.Host != "a" {
		t.Errorf("Host = %q, want a", snap.Host)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("len(Participants) = %d, want 2", len(snap.Participants))
	}
	if snap.Participants[0].ID != "a" || snap.Participants[1].ID != "b" {
		t.Errorf("roster order = %v, want [a b]", snap.Participants)
	}

	lobby := findNote(t, notes, protocol.EventLobbyUpdated)
	if lobby.Kind != KindRoomExceptSender {
		t.Errorf("lobby-updated Kind = %v, want room_except_sender", lobby.Kind)
	}
	if len(lobby.Targets) != 1 || lobby.Targets[0] != "a" {
		t.Errorf("lobby-updated Targets = %v, want [a]", lobby.Targets)
	}

	peer := findNote(t, notes, protocol.EventPeerJoined)
	if len(peer.Targets) != 1 || peer.Targets[0] != "a" {
		t.Errorf("peer-joined Targets = %v, want [a]", peer.Targets)
	}
	if got := peer.Payload.(protocol.PeerJoined).ID; got != "b" {
		t.Errorf("peer-joined ID = %q, want b", got)
	}
}

func TestJoinEmptyRoomIDIsSilentlyDropped(t *testing.T) {
	rt, reg := newTestRouter()

	notes := rt.Dispatch(context.Background(), Join{Conn: "a", Room: ""})
	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none", notes)
	}
	if reg.Len() != 0 {
		t.Errorf("registry Len = %d, want 0", reg.Len())
	}
}

func TestJoinDefaultDisplayName(t *testing.T) {
	rt, _ := newTestRouter()

	notes := rt.Dispatch(context.Background(), Join{Conn: "abcdef123456", Room: "lobby"})
	snap := findNote(t, notes, protocol.EventJoined).Payload.(protocol.RoomSnapshot)
	if got := snap.Participants[0].Name; got != "peer-abcdef12" {
		t.Errorf("Name = %q, want peer-abcdef12", got)
	}
}

func TestRejoinEmitsSnapshotButNoPeerJoined(t *testing.T) {
	rt, _ := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "lobby", Name: "Bob"})
	notes := rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice2"})

	snap := findNote(t, notes, protocol.EventJoined).Payload.(protocol.RoomSnapshot)
	if len(snap.Participants) != 2 {
		t.Fatalf("len(Participants) = %d, want 2", len(snap.Participants))
	}
	if snap.Participants[0].Name != "Alice" {
		t.Errorf("Name = %q, rejoin must not reset the display name", snap.Participants[0].Name)
	}

	if n := countNotes(notes, protocol.EventPeerJoined); n != 0 {
		t.Errorf("peer-joined count = %d, want 0 on rejoin", n)
	}
	if n := countNotes(notes, protocol.EventLobbyUpdated); n != 1 {
		t.Errorf("lobby-updated count = %d, want 1", n)
	}
}

func TestLeaveReelectsHostAndNotifies(t *testing.T) {
	rt, _ := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "lobby", Name: "Bob"})

	notes := rt.Dispatch(ctx, Leave{Conn: "a", Room: "lobby"})

	lobby := findNote(t, notes, protocol.EventLobbyUpdated)
	snap := lobby.Payload.(protocol.RoomSnapshot)
	if snap.Host != "b" {
		t.Errorf("Host = %q, want b", snap.Host)
	}
	if len(snap.Participants) != 1 || snap.Participants[0].ID != "b" {
		t.Errorf("roster = %v, want [b]", snap.Participants)
	}
	if len(lobby.Targets) != 1 || lobby.Targets[0] != "b" {
		t.Errorf("lobby-updated Targets = %v, want [b]", lobby.Targets)
	}

	left := findNote(t, notes, protocol.EventParticipantLeft)
	if got := left.Payload.(protocol.ParticipantLeft).ID; got != "a" {
		t.Errorf("participant-left ID = %q, want a", got)
	}
	if len(left.Targets) != 1 || left.Targets[0] != "b" {
		t.Errorf("participant-left Targets = %v, want [b]", left.Targets)
	}
}

func TestLeaveLastDeletesRoomSilently(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	notes := rt.Dispatch(ctx, Leave{Conn: "a", Room: "lobby"})

	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none (nobody left to notify)", notes)
	}
	if _, ok := reg.Get("lobby"); ok {
		t.Error("room should be deleted once empty")
	}
}

func TestLeaveAbsentRoomIsNoOp(t *testing.T) {
	rt, _ := newTestRouter()
	notes := rt.Dispatch(context.Background(), Leave{Conn: "a", Room: "nope"})
	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none", notes)
	}
}

func TestStartCallByNonHost(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "lobby", Name: "Bob"})

	notes := rt.Dispatch(ctx, StartCall{Conn: "b", Room: "lobby"})

	errNote := findNote(t, notes, protocol.EventError)
	if errNote.Kind != KindDirect {
		t.Errorf("error Kind = %v, want direct", errNote.Kind)
	}
	if len(errNote.Targets) != 1 || errNote.Targets[0] != "b" {
		t.Errorf("error Targets = %v, error must go to the requester only", errNote.Targets)
	}
	if got := errNote.Payload.(*protocol.ErrorMessage).Code; got != protocol.CodeNotHost {
		t.Errorf("error Code = %q, want %q", got, protocol.CodeNotHost)
	}

	if n := countNotes(notes, protocol.EventCallStarted); n != 0 {
		t.Errorf("call-started count = %d, want 0", n)
	}
	r, _ := reg.Get("lobby")
	if r.Started() {
		t.Error("Started should be unchanged after a rejected start-call")
	}
}

func TestStartCallByHost(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "lobby", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "lobby", Name: "Bob"})

	notes := rt.Dispatch(ctx, StartCall{Conn: "a", Room: "lobby"})

	started := findNote(t, notes, protocol.EventCallStarted)
	if started.Kind != KindRoomBroadcast {
		t.Errorf("call-started Kind = %v, want room broadcast", started.Kind)
	}
	if len(started.Targets) != 2 {
		t.Errorf("call-started Targets = %v, want both members", started.Targets)
	}
	payload := started.Payload.(protocol.CallStarted)
	if len(payload.Participants) != 2 || payload.Participants[0].ID != "a" {
		t.Errorf("call-started roster = %v, want ordered [a b]", payload.Participants)
	}

	r, _ := reg.Get("lobby")
	if !r.Started() {
		t.Error("Started should be true")
	}

	// Restart is a no-op with the same broadcast, not an error.
	again := rt.Dispatch(ctx, StartCall{Conn: "a", Room: "lobby"})
	if n := countNotes(again, protocol.EventError); n != 0 {
		t.Error("restarting an already-started call should not error")
	}
	if n := countNotes(again, protocol.EventCallStarted); n != 1 {
		t.Errorf("call-started count = %d, want 1", n)
	}
}

func TestStartCallOnAbsentRoom(t *testing.T) {
	rt, _ := newTestRouter()
	notes := rt.Dispatch(context.Background(), StartCall{Conn: "a", Room: "nope"})
	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none", notes)
	}
}

func TestSignalRelaysAcrossRooms(t *testing.T) {
	rt, _ := newTestRouter()
	ctx := context.Background()

	// a and b do not share a room; the relay does not care.
	rt.Dispatch(ctx, Join{Conn: "a", Room: "r1", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "r2", Name: "Bob"})

	data := json.RawMessage(`{"sdp":"offer"}`)
	notes := rt.Dispatch(ctx, Signal{Conn: "a", To: "b", Data: data})

	if len(notes) != 1 {
		t.Fatalf("len(notes) = %d, want 1", len(notes))
	}
	n := notes[0]
	if n.Kind != KindDirected {
		t.Errorf("Kind = %v, want directed", n.Kind)
	}
	if len(n.Targets) != 1 || n.Targets[0] != "b" {
		t.Errorf("Targets = %v, want [b]", n.Targets)
	}
	sd := n.Payload.(protocol.SignalDelivery)
	if sd.From != "a" {
		t.Errorf("From = %q, want a", sd.From)
	}
	if string(sd.Data) != string(data) {
		t.Errorf("Data = %s, payload must be passed through untouched", sd.Data)
	}
}

func TestSignalWithoutTargetIsDropped(t *testing.T) {
	rt, _ := newTestRouter()
	notes := rt.Dispatch(context.Background(), Signal{Conn: "a", To: ""})
	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none", notes)
	}
}

func TestDisconnectLeavesEveryRoomIndependently(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	// a hosts r1 and r2; r1 has another member, r2 does not.
	rt.Dispatch(ctx, Join{Conn: "a", Room: "r1", Name: "Alice"})
	rt.Dispatch(ctx, Join{Conn: "b", Room: "r1", Name: "Bob"})
	rt.Dispatch(ctx, Join{Conn: "a", Room: "r2", Name: "Alice"})

	notes := rt.Dispatch(ctx, Disconnect{Conn: "a"})

	// r1 survives with b as host and gets both broadcasts.
	r1, ok := reg.Get("r1")
	if !ok {
		t.Fatal("r1 should survive")
	}
	if r1.HostID() != "b" {
		t.Errorf("r1 HostID = %q, want b", r1.HostID())
	}
	if n := countNotes(notes, protocol.EventLobbyUpdated); n != 1 {
		t.Errorf("lobby-updated count = %d, want 1", n)
	}
	if n := countNotes(notes, protocol.EventParticipantLeft); n != 1 {
		t.Errorf("participant-left count = %d, want 1", n)
	}

	// r2 emptied and vanished.
	if _, ok := reg.Get("r2"); ok {
		t.Error("r2 should be deleted")
	}
	if got := reg.RoomsOf("a"); got != nil {
		t.Errorf("RoomsOf(a) = %v, want nil", got)
	}
}

func TestDisconnectUnknownConn(t *testing.T) {
	rt, _ := newTestRouter()
	notes := rt.Dispatch(context.Background(), Disconnect{Conn: "ghost"})
	if len(notes) != 0 {
		t.Errorf("notifications = %v, want none", notes)
	}
}

func TestBadCommandCannotTouchOtherRooms(t *testing.T) {
	rt, reg := newTestRouter()
	ctx := context.Background()

	rt.Dispatch(ctx, Join{Conn: "a", Room: "stable", Name: "Alice"})
	before, _ := reg.Get("stable")
	wantHost := before.HostID()

	rt.Dispatch(ctx, Join{Conn: "x", Room: ""})
	rt.Dispatch(ctx, StartCall{Conn: "x", Room: "stable"})
	rt.Dispatch(ctx, Leave{Conn: "x", Room: "stable"})
	rt.Dispatch(ctx, Signal{Conn: "x", To: ""})

	after, ok := reg.Get("stable")
	if !ok {
		t.Fatal("stable room should still exist")
	}
	if after.HostID() != wantHost {
		t.Errorf("HostID = %q, want %q", after.HostID(), wantHost)
	}
	if after.Started() {
		t.Error("Started should be unchanged")
	}
	if after.Len() != 1 {
		t.Errorf("Len = %d, want 1", after.Len())
	}
}
