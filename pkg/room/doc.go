// Package room holds the in-memory room state for the signaling relay:
// the registry of rooms, each room's ordered roster, its host, and the
// started flag, plus a reverse index from connection id to room ids.
//
// The package is a pure data structure. It knows nothing about transport
// and performs no locking; the relay router serializes all access.
package room
