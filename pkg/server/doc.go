// Package server is the transport layer of the signaling relay. It
// accepts WebSocket connections, assigns each one an opaque connection
// id, decodes inbound frames into relay commands, and delivers the
// router's notification intents back out to the matching live
// connections.
//
// The package owns everything the relay core deliberately does not:
// connection framing, keepalive, per-IP limits, idle cleanup, HTTP
// routing (/ws, /healthz, /metrics, /rooms), and graceful shutdown.
package server
