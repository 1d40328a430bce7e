package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/beacon-dev/beacon/internal/telemetry"
	"github.com/beacon-dev/beacon/pkg/relay"
)

// ConnManager tracks all live connections. It enforces connection
// limits, closes idle connections, and delivers the router's
// notification intents to their resolved targets.
type ConnManager struct {
	// Connections map protected by RWMutex
	conns map[string]*Conn
	mu    sync.RWMutex

	// Connection count per IP address (protected by mu)
	connsByIP map[string]int

	// Limits
	limits Limits

	// Cleanup
	cleanupInterval atomic.Int64 // nanoseconds
	cleanupKick     chan struct{}
	done            chan struct{}
	cleanupDone     chan struct{} // Signals that the cleanup goroutine has exited

	// Metrics
	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakConns    int

	// Logger
	logger *slog.Logger
}

// NewConnManager creates a ConnManager with the given limits.
func NewConnManager(limits Limits, logger *slog.Logger) *ConnManager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &ConnManager{
		conns:       make(map[string]*Conn),
		connsByIP:   make(map[string]int),
		limits:      limits,
		cleanupKick: make(chan struct{}, 1),
		done:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger.With("component", "conn_manager"),
	}
	m.cleanupInterval.Store(int64(30 * time.Second))

	go m.cleanupLoop()

	return m
}

// Add registers a connection, enforcing the connection limits.
func (m *ConnManager) Add(c *Conn) error {
	m.mu.Lock()

	if m.limits.MaxConns > 0 && len(m.conns) >= m.limits.MaxConns {
		m.mu.Unlock()
		return ErrMaxConnsReached
	}
	if m.limits.MaxConnsPerIP > 0 && c.IP != "" && m.connsByIP[c.IP] >= m.limits.MaxConnsPerIP {
		m.mu.Unlock()
		return ErrTooManyConnsFromIP
	}

	m.conns[c.ID] = c
	if c.IP != "" {
		m.connsByIP[c.IP]++
	}
	if len(m.conns) > m.peakConns {
		m.peakConns = len(m.conns)
	}
	m.mu.Unlock()

	m.totalCreated.Add(1)
	telemetry.RecordConnect()

	m.logger.Info("connection registered",
		"conn_id", c.ID,
		"ip", c.IP,
		"active_conns", m.Count())

	return nil
}

// Remove unregisters a connection by id. Unknown ids are a no-op.
func (m *ConnManager) Remove(id string) {
	m.mu.Lock()
	c, ok := m.conns[id]
	if ok {
		delete(m.conns, id)
		if c.IP != "" {
			m.connsByIP[c.IP]--
			if m.connsByIP[c.IP] <= 0 {
				delete(m.connsByIP, c.IP)
			}
		}
	}
	m.mu.Unlock()

	if ok {
		m.totalClosed.Add(1)
		telemetry.RecordDisconnect()
		m.logger.Info("connection unregistered",
			"conn_id", id,
			"active_conns", m.Count())
	}
}

// Get retrieves a connection by id.
func (m *ConnManager) Get(id string) (*Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[id]
	return c, ok
}

// Count returns the number of live connections.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// ForEach iterates over all connections. The callback must not perform
// long-running operations as it holds the read lock.
func (m *ConnManager) ForEach(fn func(*Conn) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.conns {
		if !fn(c) {
			break
		}
	}
}

// Deliver fans a notification out to its resolved targets. Targets that
// are no longer connected are dropped silently; the relay does not
// track delivery receipts.
func (m *ConnManager) Deliver(n relay.Notification) {
	for _, id := range n.Targets {
		c, ok := m.Get(id)
		if !ok {
			telemetry.RecordDroppedDelivery("target_gone")
			m.logger.Debug("notification target gone",
				"conn_id", id,
				"event", string(n.Event))
			continue
		}
		if err := c.Send(n.Event, n.Payload); err != nil {
			telemetry.RecordDroppedDelivery("send_failed")
			m.logger.Debug("notification send failed",
				"conn_id", id,
				"event", string(n.Event),
				"error", err)
		}
	}
}

// DeliverAll delivers a batch of notifications in order.
func (m *ConnManager) DeliverAll(notes []relay.Notification) {
	for _, n := range notes {
		m.Deliver(n)
	}
}

// ManagerStats contains aggregated connection statistics.
type ManagerStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// Stats returns aggregated connection statistics.
func (m *ConnManager) Stats() ManagerStats {
	m.mu.RLock()
	active := len(m.conns)
	peak := m.peakConns
	m.mu.RUnlock()

	return ManagerStats{
		Active:       active,
		TotalCreated: m.totalCreated.Load(),
		TotalClosed:  m.totalClosed.Load(),
		Peak:         peak,
	}
}

// SetCleanupInterval sets the idle cleanup interval and wakes the
// cleanup loop so the new interval takes effect immediately. Intended
// for tests.
func (m *ConnManager) SetCleanupInterval(d time.Duration) {
	m.cleanupInterval.Store(int64(d))
	select {
	case m.cleanupKick <- struct{}{}:
	default:
	}
}

func (m *ConnManager) interval() time.Duration {
	return time.Duration(m.cleanupInterval.Load())
}

// cleanupLoop periodically closes idle connections.
func (m *ConnManager) cleanupLoop() {
	defer close(m.cleanupDone)

	timer := time.NewTimer(m.interval())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			m.closeIdle()
			timer.Reset(m.interval())
		case <-m.cleanupKick:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(m.interval())
		case <-m.done:
			return
		}
	}
}

// closeIdle closes connections that exceeded the idle timeout. The
// read pump notices the closed socket and runs the normal disconnect
// path, so room state is cleaned up by the usual route.
func (m *ConnManager) closeIdle() {
	if m.limits.IdleTimeout <= 0 {
		return
	}

	now := time.Now()
	var idle []*Conn

	m.ForEach(func(c *Conn) bool {
		if now.Sub(c.LastActive()) > m.limits.IdleTimeout {
			idle = append(idle, c)
		}
		return true
	})

	for _, c := range idle {
		c.logger.Info("closing idle connection",
			"idle", now.Sub(c.LastActive()).String())
		c.Close()
	}

	if len(idle) > 0 {
		m.logger.Info("closed idle connections", "count", len(idle))
	}
}

// Shutdown gracefully closes all connections.
func (m *ConnManager) Shutdown() {
	m.ShutdownWithContext(context.Background())
}

// ShutdownWithContext gracefully closes all connections, waiting for
// their teardown until the context is done.
func (m *ConnManager) ShutdownWithContext(ctx context.Context) error {
	// Stop the cleanup loop and wait for it to exit
	close(m.done)
	<-m.cleanupDone

	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.conns = make(map[string]*Conn)
	m.connsByIP = make(map[string]int)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			c.Close()
		}(c)
	}

	closed := make(chan struct{})
	go func() {
		wg.Wait()
		close(closed)
	}()

	select {
	case <-closed:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.logger.Info("connection manager shutdown",
		"closed_conns", len(conns))

	return nil
}
