package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common connection and server error conditions.
var (
	// ErrConnClosed is returned when an operation is attempted on a closed connection.
	ErrConnClosed = errors.New("server: connection closed")

	// ErrMaxConnsReached is returned when the connection limit is reached.
	ErrMaxConnsReached = errors.New("server: max connections reached")

	// ErrTooManyConnsFromIP is returned when the per-IP connection limit is reached.
	ErrTooManyConnsFromIP = errors.New("server: too many connections from IP")

	// ErrSendBufferFull is returned when a connection's outbound buffer overflows.
	ErrSendBufferFull = errors.New("server: send buffer full")
)

// ConnError wraps an error with connection context for debugging.
type ConnError struct {
	ConnID string
	Op     string // Operation that failed
	Err    error  // Underlying error
}

// Error returns the error message with connection context.
func (e *ConnError) Error() string {
	if e.ConnID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: conn %s: %s: %v", e.ConnID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(connID, op string, err error) *ConnError {
	return &ConnError{ConnID: connID, Op: op, Err: err}
}
