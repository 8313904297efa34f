package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// telemetryEnvelope is the JSON shape of published telemetry messages.
type telemetryEnvelope struct {
	DeviceID  string `json:"deviceId"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// eventEnvelope is the JSON shape of published lifecycle events.
type eventEnvelope struct {
	DeviceID  string `json:"deviceId"`
	Event     string `json:"event"`
	ClientID  uint64 `json:"clientId"`
	Timestamp string `json:"timestamp"`
}

// PublishTelemetry publishes one telemetry frame to the device's topic.
func (c *Client) PublishTelemetry(deviceID string, payload any) error {
	return c.publishJSON(TelemetryTopic(deviceID), telemetryEnvelope{
		DeviceID:  deviceID,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishEvent publishes a device lifecycle event (connected, disconnected,
// code_executed) to the device's event topic.
func (c *Client) PublishEvent(deviceID, event string, clientID uint64) error {
	return c.publishJSON(EventTopic(deviceID), eventEnvelope{
		DeviceID:  deviceID,
		Event:     event,
		ClientID:  clientID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) publishJSON(topic string, v any) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling mqtt payload: %w", err)
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), false, data)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	c.logger.Debug("mqtt published", "topic", topic, "bytes", len(data))
	return nil
}
