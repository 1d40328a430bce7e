// Package relay implements the signaling relay's session router: the
// state machine that applies connection events to the room registry and
// computes which connections must be notified of what.
//
// Commands form a closed set (Join, Leave, StartCall, Signal,
// Disconnect) and enter through a single Dispatch call. Dispatch
// performs no I/O; it returns notification intents as data, and the
// transport layer delivers them to the matching live connections. This
// keeps the router unit-testable without a transport.
//
// Dispatch serializes all command processing behind one mutex, so every
// command observes and mutates a consistent registry snapshot. Commands
// never block inside the lock; suspension only ever happens at the
// transport boundary.
package relay
