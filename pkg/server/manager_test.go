package server

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/beacon-dev/beacon/pkg/protocol"
	"github.com/beacon-dev/beacon/pkg/relay"
)

func newTestConn(ip string) *Conn {
	return newConn(nil, ip, DefaultConnConfig(), slog.Default())
}

func newTestManager(limits Limits) *ConnManager {
	return NewConnManager(limits, slog.Default())
}

func TestManagerAddRemove(t *testing.T) {
	m := newTestManager(DefaultLimits())
	defer m.Shutdown()

	c := newTestConn("10.0.0.1")
	if err := m.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	got, ok := m.Get(c.ID)
	if !ok || got != c {
		t.Error("Get should return the registered connection")
	}

	m.Remove(c.ID)
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
	if _, ok := m.Get(c.ID); ok {
		t.Error("Get should report the connection gone")
	}

	// Removing again is a no-op.
	m.Remove(c.ID)
}

func TestManagerMaxConns(t *testing.T) {
	m := newTestManager(Limits{MaxConns: 1})
	defer m.Shutdown()

	if err := m.Add(newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(newTestConn("10.0.0.2")); !errors.Is(err, ErrMaxConnsReached) {
		t.Errorf("error = %v, want ErrMaxConnsReached", err)
	}
}

func TestManagerMaxConnsPerIP(t *testing.T) {
	m := newTestManager(Limits{MaxConnsPerIP: 2})
	defer m.Shutdown()

	if err := m.Add(newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(newTestConn("10.0.0.1")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(newTestConn("10.0.0.1")); !errors.Is(err, ErrTooManyConnsFromIP) {
		t.Errorf("error = %v, want ErrTooManyConnsFromIP", err)
	}

	// A different IP still has room.
	if err := m.Add(newTestConn("10.0.0.2")); err != nil {
		t.Errorf("Add from another IP failed: %v", err)
	}
}

func TestManagerIPBucketReleasedOnRemove(t *testing.T) {
	m := newTestManager(Limits{MaxConnsPerIP: 1})
	defer m.Shutdown()

	c := newTestConn("10.0.0.1")
	if err := m.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	m.Remove(c.ID)

	if err := m.Add(newTestConn("10.0.0.1")); err != nil {
		t.Errorf("Add after Remove failed: %v", err)
	}
}

func TestManagerStats(t *testing.T) {
	m := newTestManager(DefaultLimits())
	defer m.Shutdown()

	a := newTestConn("10.0.0.1")
	b := newTestConn("10.0.0.2")
	m.Add(a)
	m.Add(b)
	m.Remove(a.ID)

	stats := m.Stats()
	if stats.Active != 1 {
		t.Errorf("Active = %d, want 1", stats.Active)
	}
	if stats.TotalCreated != 2 {
		t.Errorf("TotalCreated = %d, want 2", stats.TotalCreated)
	}
	if stats.TotalClosed != 1 {
		t.Errorf("TotalClosed = %d, want 1", stats.TotalClosed)
	}
	if stats.Peak != 2 {
		t.Errorf("Peak = %d, want 2", stats.Peak)
	}
}

func TestDeliverToGoneTargetIsSilent(t *testing.T) {
	m := newTestManager(DefaultLimits())
	defer m.Shutdown()

	// Must not panic or error; undeliverable targets are dropped.
	m.Deliver(relay.Notification{
		Kind:    relay.KindDirected,
		Targets: []string{"no-such-conn"},
		Event:   protocol.EventSignal,
		Payload: protocol.SignalDelivery{From: "a"},
	})
}

func TestDeliverQueuesOnConn(t *testing.T) {
	m := newTestManager(DefaultLimits())
	defer m.Shutdown()

	c := newTestConn("10.0.0.1")
	m.Add(c)

	m.Deliver(relay.Notification{
		Kind:    relay.KindDirect,
		Targets: []string{c.ID},
		Event:   protocol.EventPeerJoined,
		Payload: protocol.PeerJoined{ID: "b"},
	})

	select {
	case data := <-c.send:
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			t.Fatalf("DecodeEnvelope failed: %v", err)
		}
		if env.Type != protocol.EventPeerJoined {
			t.Errorf("Type = %q, want peer-joined", env.Type)
		}
	default:
		t.Fatal("notification should be queued on the connection")
	}
}

func TestManagerForEach(t *testing.T) {
	m := newTestManager(DefaultLimits())
	defer m.Shutdown()

	m.Add(newTestConn("10.0.0.1"))
	m.Add(newTestConn("10.0.0.2"))
	m.Add(newTestConn("10.0.0.3"))

	count := 0
	m.ForEach(func(*Conn) bool {
		count++
		return true
	})
	if count != 3 {
		t.Errorf("visited %d conns, want 3", count)
	}

	// Returning false stops the iteration.
	count = 0
	m.ForEach(func(*Conn) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("visited %d conns after stop, want 1", count)
	}
}

func TestIdleConnIsClosed(t *testing.T) {
	m := newTestManager(Limits{IdleTimeout: time.Millisecond})
	defer m.Shutdown()

	c := newTestConn("10.0.0.1")
	if err := m.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Lowering the interval after the loop has started must still take
	// effect; the default first tick is far too late for a test.
	m.SetCleanupInterval(5 * time.Millisecond)

	waitFor(t, func() bool { return c.closed.Load() })
}

func TestActiveConnSurvivesCleanup(t *testing.T) {
	m := newTestManager(Limits{IdleTimeout: time.Minute})
	defer m.Shutdown()

	c := newTestConn("10.0.0.1")
	if err := m.Add(c); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	m.SetCleanupInterval(time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	if c.closed.Load() {
		t.Error("connection within the idle timeout should stay open")
	}
}

func TestConnIDsAreUnique(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		c := newTestConn("")
		if c.ID == "" {
			t.Fatal("connection ID should not be empty")
		}
		if ids[c.ID] {
			t.Fatal("connection ID should be unique")
		}
		ids[c.ID] = true
	}
}
