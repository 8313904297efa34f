package mqtt

import "fmt"

// Topic layout. Everything the server publishes lives under the hwbridge/
// prefix so brokers shared with other systems stay tidy.
const (
	topicPrefix = "hwbridge"
)

// TelemetryTopic returns the topic for a device's telemetry stream.
func TelemetryTopic(deviceID string) string {
	return fmt.Sprintf("%s/telemetry/%s", topicPrefix, deviceID)
}

// EventTopic returns the topic for a device's lifecycle events.
func EventTopic(deviceID string) string {
	return fmt.Sprintf("%s/events/%s", topicPrefix, deviceID)
}

// StatusTopic returns the server status topic used for the LWT message.
func StatusTopic() string {
	return topicPrefix + "/status"
}
