package bridge

import "errors"

// Domain errors for bridge operations.
var (
	// ErrNotStarted indicates the bridge process is not running.
	ErrNotStarted = errors.New("bridge: process not started")

	// ErrAlreadyStarted indicates Start was called on a running bridge.
	ErrAlreadyStarted = errors.New("bridge: process already started")

	// ErrNotReady indicates the process never emitted its ready marker.
	ErrNotReady = errors.New("bridge: process not ready")

	// ErrConnectionFailed indicates the bridge could not open the serial port.
	ErrConnectionFailed = errors.New("bridge: device connection failed")

	// ErrExecTimeout indicates an execution produced no completion marker
	// within the configured timeout.
	ErrExecTimeout = errors.New("bridge: execution timed out")

	// ErrWrongDevice indicates an execution was requested for a device id
	// the bridge does not serve.
	ErrWrongDevice = errors.New("bridge: device not served by this bridge")
)
