package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/beacon-dev/beacon/internal/telemetry"
	"github.com/beacon-dev/beacon/pkg/protocol"
)

// Conn wraps a single WebSocket connection. The id is the opaque,
// process-unique token the relay core uses to address this peer.
type Conn struct {
	// Identity
	ID        string
	IP        string
	CreatedAt time.Time

	ws   *websocket.Conn
	send chan []byte

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	lastActive atomic.Int64 // unix nanos

	config ConnConfig
	logger *slog.Logger

	// Metrics
	bytesSent atomic.Uint64
	bytesRecv atomic.Uint64
}

func newConn(ws *websocket.Conn, ip string, config ConnConfig, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	c := &Conn{
		ID:        id,
		IP:        ip,
		CreatedAt: time.Now(),
		ws:        ws,
		send:      make(chan []byte, config.SendBuffer),
		done:      make(chan struct{}),
		config:    config,
		logger:    logger.With("conn_id", id),
	}
	c.touch()
	return c
}

// LastActive returns the time of the last inbound traffic.
func (c *Conn) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Conn) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

// Send encodes an event and queues it for delivery. It never blocks:
// a connection whose buffer is full is closed.
func (c *Conn) Send(event protocol.EventType, payload any) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	data, err := protocol.EncodeEnvelope(event, payload)
	if err != nil {
		return NewConnError(c.ID, "encode", err)
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, closing connection")
		telemetry.RecordWebSocketError("send_buffer_full")
		c.Close()
		return ErrSendBufferFull
	}
}

// ReadPump pumps inbound frames to the handler until the connection
// errors or closes. There is at most one reader per connection; all
// reads happen on this goroutine.
func (c *Conn) ReadPump(handle func(*Conn, *protocol.Envelope)) {
	defer c.Close()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
		c.touch()
		return nil
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				telemetry.RecordWebSocketError("read")
			}
			return
		}

		c.touch()
		c.bytesRecv.Add(uint64(len(msg)))

		env, err := protocol.DecodeEnvelope(msg)
		if err != nil {
			c.logger.Debug("frame decode error", "error", err)
			telemetry.RecordWebSocketError("decode")
			c.Send(protocol.EventError,
				protocol.NewError(protocol.CodeInvalidFrame, "malformed message"))
			continue
		}

		handle(c, env)
	}
}

// WritePump pumps queued messages to the WebSocket connection and sends
// periodic pings. There is at most one writer per connection; all
// writes happen on this goroutine.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.config.pingInterval())
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write error", "error", err)
				telemetry.RecordWebSocketError("write")
				return
			}
			c.bytesSent.Add(uint64(len(data)))

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Close shuts the connection down. Safe to call multiple times and from
// any goroutine.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// Stats returns this connection's traffic counters.
func (c *Conn) Stats() (bytesSent, bytesRecv uint64) {
	return c.bytesSent.Load(), c.bytesRecv.Load()
}
