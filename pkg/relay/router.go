package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/beacon-dev/beacon/internal/telemetry"
	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/room"
)

// Router applies commands to the room registry and computes outbound
// notifications. It owns the registry: nothing else mutates room state.
type Router struct {
	mu     sync.Mutex
	reg    *room.Registry
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a Router over the given registry.
func New(reg *room.Registry, logger *slog.Logger) *Router {
	if reg == nil {
		reg = room.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		reg:    reg,
		logger: logger.With("component", "relay"),
		tracer: telemetry.Tracer(),
	}
}

// Dispatch processes one command to completion and returns the
// notifications the transport must deliver. Commands are serialized
// behind a single lock, so each one observes a consistent registry
// state; no command blocks while holding it.
//
// Failures never escape as errors: a malformed command is dropped
// silently, and an unauthorized start-call yields an error notification
// for the requester only. One bad command cannot affect other rooms or
// connections.
func (rt *Router) Dispatch(ctx context.Context, cmd Command) []Notification {
	_, span := rt.tracer.Start(ctx, "relay."+cmd.Event(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("relay.event", cmd.Event())))
	defer span.End()

	start := time.Now()

	rt.mu.Lock()
	notes, err := rt.apply(cmd)
	rooms := rt.reg.Len()
	rt.mu.Unlock()

	telemetry.RecordDispatchDuration(cmd.Event(), time.Since(start).Seconds())
	telemetry.SetActiveRooms(rooms)

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotHost):
		status = "not_host"
		span.SetStatus(codes.Error, err.Error())
		if sc, ok := cmd.(StartCall); ok {
			notes = append(notes, direct(sc.Conn, protocol.EventError,
				protocol.NewError(protocol.CodeNotHost, "only the host can start the call")))
		}
	default:
		// Malformed or stale commands are dropped without a reply.
		status = "ignored"
		rt.logger.Debug("command ignored", "event", cmd.Event(), "reason", err)
	}
	telemetry.RecordEvent(cmd.Event(), status)

	return notes
}

// Rooms returns the number of rooms currently in the registry.
func (rt *Router) Rooms() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.reg.Len()
}

// Snapshot returns the wire snapshot of a room, if it exists.
func (rt *Router) Snapshot(roomID string) (protocol.RoomSnapshot, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	r, ok := rt.reg.Get(roomID)
	if !ok {
		return protocol.RoomSnapshot{}, false
	}
	return snapshot(r), true
}

// apply runs a command against the registry. Caller holds rt.mu.
func (rt *Router) apply(cmd Command) ([]Notification, error) {
	switch c := cmd.(type) {
	case Join:
		return rt.join(c)
	case Leave:
		return rt.leave(c.Room, c.Conn)
	case StartCall:
		return rt.startCall(c)
	case Signal:
		return rt.signal(c)
	case Disconnect:
		return rt.disconnect(c)
	default:
		return nil, ErrMalformedRequest
	}
}

func (rt *Router) join(c Join) ([]Notification, error) {
	if c.Room == "" {
		return nil, ErrMalformedRequest
	}

	name := sanitizeName(c.Name, c.Conn)
	r, added := rt.reg.Join(c.Room, c.Conn, name)

	snap := snapshot(r)
	notes := []Notification{
		direct(c.Conn, protocol.EventJoined, snap),
	}
	if r.Len() > 1 {
		notes = append(notes, roomExcept(r, c.Conn, protocol.EventLobbyUpdated, snap))
		if added {
			notes = append(notes, roomExcept(r, c.Conn, protocol.EventPeerJoined,
				protocol.PeerJoined{ID: c.Conn}))
		}
	}

	rt.logger.Info("joined room",
		"conn_id", c.Conn,
		"room", c.Room,
		"participants", r.Len(),
		"host", r.HostID(),
		"rejoin", !added)

	return notes, nil
}

// leave is shared by Leave and Disconnect. When the departing connection
// held the host seat, the first remaining participant inherits it; when
// the roster empties, the room is deleted and nobody is notified because
// nobody remains.
func (rt *Router) leave(roomID, connID string) ([]Notification, error) {
	r, removed := rt.reg.Leave(roomID, connID)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if !removed {
		return nil, nil
	}

	rt.logger.Info("left room",
		"conn_id", connID,
		"room", roomID,
		"remaining", r.Len(),
		"host", r.HostID())

	if r.Empty() {
		return nil, nil
	}

	// Two distinct events on purpose: participant-left drives "someone
	// left" transitions, lobby-updated refreshes the full roster.
	return []Notification{
		roomBroadcast(r, protocol.EventLobbyUpdated, snapshot(r)),
		roomBroadcast(r, protocol.EventParticipantLeft, protocol.ParticipantLeft{ID: connID}),
	}, nil
}

func (rt *Router) startCall(c StartCall) ([]Notification, error) {
	r, ok := rt.reg.Get(c.Room)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.HostID() != c.Conn {
		return nil, ErrNotHost
	}

	// Idempotent: re-starting an already-started call repeats the
	// broadcast without error.
	r.Start()

	snap := snapshot(r)
	rt.logger.Info("call started",
		"room", c.Room,
		"host", c.Conn,
		"participants", r.Len())

	return []Notification{
		roomBroadcast(r, protocol.EventCallStarted, protocol.CallStarted{
			Room:         snap.Room,
			Participants: snap.Participants,
		}),
	}, nil
}

func (rt *Router) signal(c Signal) ([]Notification, error) {
	if c.To == "" {
		return nil, ErrMalformedRequest
	}

	// Pure relay: no room state is read or written, and delivery is
	// fire-and-forget. If the target is gone the transport drops it.
	telemetry.RecordSignalRelayed()
	return []Notification{
		directed(c.To, protocol.EventSignal, protocol.SignalDelivery{
			From: c.Conn,
			Data: c.Data,
		}),
	}, nil
}

func (rt *Router) disconnect(c Disconnect) ([]Notification, error) {
	roomIDs := rt.reg.RoomsOf(c.Conn)
	if len(roomIDs) == 0 {
		return nil, nil
	}

	var notes []Notification
	for _, id := range roomIDs {
		ns, err := rt.leave(id, c.Conn)
		if err != nil {
			continue
		}
		notes = append(notes, ns...)
	}

	rt.logger.Info("disconnected from all rooms",
		"conn_id", c.Conn,
		"rooms", len(roomIDs))

	return notes, nil
}

// sanitizeName applies the display-name default and length cap.
func sanitizeName(name, connID string) string {
	if name == "" {
		short := connID
		if len(short) > 8 {
			short = short[:8]
		}
		return "peer-" + short
	}
	runes := []rune(name)
	if len(runes) > protocol.MaxNameLength {
		return string(runes[:protocol.MaxNameLength])
	}
	return name
}
