package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beacon-dev/beacon/internal/telemetry"
	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/relay"
)

// newUpgrader builds the WebSocket upgrader with the configured origin
// policy. An empty allowlist accepts any origin; production deployments
// should always set one.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// handleWS upgrades the HTTP request and runs the connection's
// lifecycle: register, pump, and on exit tear down room membership.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "error", err)
		telemetry.RecordWebSocketError("upgrade")
		return
	}

	c := newConn(ws, clientIP(r), s.config.Conn, s.logger)

	if err := s.manager.Add(c); err != nil {
		s.logger.Warn("connection rejected",
			"ip", c.IP,
			"reason", err)
		telemetry.RecordWebSocketError("limit")
		deadline := time.Now().Add(s.config.Conn.WriteTimeout)
		ws.SetWriteDeadline(deadline)
		if data, encErr := protocol.EncodeEnvelope(protocol.EventError,
			protocol.NewError(protocol.CodeNotAuthorized, "connection limit reached")); encErr == nil {
			ws.WriteMessage(websocket.TextMessage, data)
		}
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit"),
			deadline)
		ws.Close()
		return
	}

	go c.WritePump()
	go func() {
		c.ReadPump(s.handleEvent)
		s.teardown(c)
	}()
}

// teardown runs when a connection's read pump exits for any reason:
// client close, network error, idle cleanup, or shutdown. It removes
// the connection from every room it was in and notifies the remnants.
func (s *Server) teardown(c *Conn) {
	s.manager.Remove(c.ID)

	notes := s.router.Dispatch(context.Background(), relay.Disconnect{Conn: c.ID})
	s.manager.DeliverAll(notes)

	c.Close()
}

// handleEvent turns one decoded envelope into a relay command,
// dispatches it, and delivers the resulting notifications.
func (s *Server) handleEvent(c *Conn, env *protocol.Envelope) {
	var cmd relay.Command

	switch env.Type {
	case protocol.EventJoinRoom:
		var jr protocol.JoinRoom
		if err := env.Decode(&jr); err != nil {
			s.rejectPayload(c, env, err)
			return
		}
		cmd = relay.Join{Conn: c.ID, Room: jr.Room, Name: jr.Name}

	case protocol.EventLeaveRoom:
		var lr protocol.LeaveRoom
		if err := env.Decode(&lr); err != nil {
			s.rejectPayload(c, env, err)
			return
		}
		cmd = relay.Leave{Conn: c.ID, Room: lr.Room}

	case protocol.EventStartCall:
		var sc protocol.StartCall
		if err := env.Decode(&sc); err != nil {
			s.rejectPayload(c, env, err)
			return
		}
		cmd = relay.StartCall{Conn: c.ID, Room: sc.Room}

	case protocol.EventSignal:
		var sig protocol.Signal
		if err := env.Decode(&sig); err != nil {
			s.rejectPayload(c, env, err)
			return
		}
		cmd = relay.Signal{Conn: c.ID, To: sig.To, Data: sig.Data}

	default:
		s.logger.Debug("unknown event type",
			"conn_id", c.ID,
			"type", string(env.Type))
		telemetry.RecordWebSocketError("unknown_event")
		c.Send(protocol.EventError,
			protocol.NewError(protocol.CodeInvalidFrame, "unknown event type"))
		return
	}

	notes := s.router.Dispatch(context.Background(), cmd)
	s.manager.DeliverAll(notes)
}

func (s *Server) rejectPayload(c *Conn, env *protocol.Envelope, err error) {
	s.logger.Debug("payload decode error",
		"conn_id", c.ID,
		"type", string(env.Type),
		"error", err)
	telemetry.RecordWebSocketError("decode")
	c.Send(protocol.EventError,
		protocol.NewError(protocol.CodeInvalidFrame, "malformed payload"))
}

// clientIP extracts the client IP from the request, without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
