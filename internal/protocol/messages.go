package protocol

import (
	"encoding/json"
	"time"

	"github.com/openblock-labs/hwbridge/internal/catalog"
)

// Client → server message types.
const (
	TypeGetDeviceList    = "getDeviceList"
	TypeConnectDevice    = "connectDevice"
	TypeDisconnectDevice = "disconnectDevice"
	TypeSendData         = "sendData"
	TypeGetDeviceStatus  = "getDeviceStatus"
	TypePing             = "ping"
	TypeUploadCode       = "uploadCode"
	TypeExecuteCode      = "executeCode"
)

// Server → client message types.
const (
	TypeWelcome            = "welcome"
	TypeDeviceList         = "deviceList"
	TypeDeviceConnected    = "deviceConnected"
	TypeDeviceDisconnected = "deviceDisconnected"
	TypeDeviceData         = "deviceData"
	TypeDeviceStatus       = "deviceStatus"
	TypePong               = "pong"
	TypeCodeUploaded       = "codeUploaded"
	TypeCodeExecuted       = "codeExecuted"
	TypeDeviceAction       = "deviceAction"
	TypeCodeInjected       = "codeInjected"
	TypeCodeOutput         = "codeOutput"
	TypeError              = "error"
)

// Request is the envelope for all inbound client messages.
// Only the fields relevant to the given Type are populated.
type Request struct {
	Type         string          `json:"type"`
	DeviceID     string          `json:"deviceId,omitempty"`
	PeripheralID string          `json:"peripheralId,omitempty"`
	Baudrate     int             `json:"baudrate,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Code         string          `json:"code,omitempty"`
}

// Welcome is sent once when a client connection is established.
type Welcome struct {
	Type          string `json:"type"`
	Message       string `json:"message"`
	ServerVersion string `json:"serverVersion"`
	ClientID      uint64 `json:"clientId"`
}

// DeviceInfo is a catalog descriptor decorated with the per-connection
// attachment state for deviceList responses.
type DeviceInfo struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Type         catalog.Class        `json:"type"`
	Port         string               `json:"port"`
	Status       string               `json:"status"`
	Capabilities []catalog.Capability `json:"capabilities"`
	Pins         catalog.PinMap       `json:"pins"`
	Connected    bool                 `json:"connected"`
}

// DeviceList carries the full catalog.
type DeviceList struct {
	Type    string       `json:"type"`
	Devices []DeviceInfo `json:"devices"`
	Count   int          `json:"count"`
}

// DeviceConnected confirms a successful device attachment, with the
// capability and pin snapshot taken at connect time.
type DeviceConnected struct {
	Type         string               `json:"type"`
	DeviceID     string               `json:"deviceId"`
	PeripheralID string               `json:"peripheralId"`
	Baudrate     int                  `json:"baudrate"`
	Capabilities []catalog.Capability `json:"capabilities"`
	Pins         catalog.PinMap       `json:"pins"`
	Timestamp    string               `json:"timestamp"`
}

// DeviceDisconnected confirms a device detachment.
type DeviceDisconnected struct {
	Type      string `json:"type"`
	DeviceID  string `json:"deviceId"`
	Timestamp string `json:"timestamp"`
}

// DeviceData carries a telemetry frame or a data acknowledgement.
type DeviceData struct {
	Type      string `json:"type"`
	DeviceID  string `json:"deviceId"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// DeviceStatus reports the lifecycle state of an attached device.
type DeviceStatus struct {
	Type        string `json:"type"`
	DeviceID    string `json:"deviceId"`
	Status      string `json:"status"`
	ConnectedAt string `json:"connectedAt"`
	// Uptime is whole seconds since the device connected.
	Uptime int64 `json:"uptime"`
}

// Pong answers a ping.
type Pong struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// CodeUploaded confirms a completed (simulated) compile/upload stage.
type CodeUploaded struct {
	Type       string `json:"type"`
	DeviceID   string `json:"deviceId"`
	CodeLength int    `json:"codeLength"`
	Timestamp  string `json:"timestamp"`
}

// CodeExecuted carries the final output of a code execution.
type CodeExecuted struct {
	Type      string `json:"type"`
	DeviceID  string `json:"deviceId"`
	Output    string `json:"output"`
	Timestamp string `json:"timestamp"`
}

// DeviceAction is a canned post-connect action (LED blink, matrix pattern).
type DeviceAction struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Action   string `json:"action"`
	Pin      string `json:"pin,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	Message  string `json:"message"`
}

// CodeInjected carries a canned script pushed by the server on connect.
type CodeInjected struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// CodeOutput is a single relayed output line from the bridge process.
type CodeOutput struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Output   string `json:"output"`
}

// Error reports a protocol, domain, or resource error to the client.
// It never closes the connection.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Timestamp returns the current time in the wire format (RFC3339 UTC).
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NewError builds an error frame.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// NewPong builds a pong frame with the current timestamp.
func NewPong() Pong {
	return Pong{Type: TypePong, Timestamp: Timestamp()}
}

// NewDeviceData builds a deviceData frame with the current timestamp.
func NewDeviceData(deviceID string, data any) DeviceData {
	return DeviceData{
		Type:      TypeDeviceData,
		DeviceID:  deviceID,
		Data:      data,
		Timestamp: Timestamp(),
	}
}

// NewCodeExecuted builds a codeExecuted frame with the current timestamp.
func NewCodeExecuted(deviceID, output string) CodeExecuted {
	return CodeExecuted{
		Type:      TypeCodeExecuted,
		DeviceID:  deviceID,
		Output:    output,
		Timestamp: Timestamp(),
	}
}

// NewCodeUploaded builds a codeUploaded frame with the current timestamp.
func NewCodeUploaded(deviceID string, codeLength int) CodeUploaded {
	return CodeUploaded{
		Type:       TypeCodeUploaded,
		DeviceID:   deviceID,
		CodeLength: codeLength,
		Timestamp:  Timestamp(),
	}
}
