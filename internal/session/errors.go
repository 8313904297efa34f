package session

import "errors"

// Domain errors for session operations.
var (
	// ErrAlreadyAttached indicates the connection already holds a session
	// for the requested device.
	ErrAlreadyAttached = errors.New("session: device already connected")

	// ErrNotAttached indicates the connection has no session for the
	// requested device.
	ErrNotAttached = errors.New("session: device not connected")

	// ErrConnClosed indicates the connection has been closed.
	ErrConnClosed = errors.New("session: connection closed")
)
