package mqtt

import "errors"

// Domain errors for MQTT operations.
var (
	// ErrNotConnected indicates the client has no broker connection.
	ErrNotConnected = errors.New("mqtt: not connected")

	// ErrPublishTimeout indicates a publish token did not complete in time.
	ErrPublishTimeout = errors.New("mqtt: publish timed out")

	// ErrConnectFailed indicates the initial broker connection failed.
	ErrConnectFailed = errors.New("mqtt: connect failed")
)
