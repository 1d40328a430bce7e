package server

import "github.com/google/uuid"

// RoomIDSupplier produces fresh room identifiers. The relay core treats
// room ids as opaque strings, so the format is entirely up to the
// supplier; clients may also bring their own ids and skip the supplier.
type RoomIDSupplier interface {
	NewRoomID() string
}

// UUIDSupplier issues random UUID room ids.
type UUIDSupplier struct{}

// NewRoomID returns a new random room id.
func (UUIDSupplier) NewRoomID() string {
	return uuid.NewString()
}
