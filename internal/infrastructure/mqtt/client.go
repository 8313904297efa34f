package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// connectTimeout bounds the initial broker handshake.
const connectTimeout = 10 * time.Second

// publishTimeout bounds each publish token wait.
const publishTimeout = 5 * time.Second

// Client is a publish-only MQTT client for telemetry and event fan-out.
//
// The paho client handles reconnection internally; publishes during an
// outage fail fast with ErrNotConnected rather than queueing, since
// telemetry frames go stale immediately.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	logger Logger
}

// NewClient creates and connects an MQTT client.
func NewClient(cfg config.MQTTConfig, logger Logger) (*Client, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
	}

	opts := buildOptions(cfg, logger)
	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: handshake timed out", ErrConnectFailed)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	logger.Info("mqtt connected",
		"broker", brokerURL(cfg.Broker), "client_id", cfg.Broker.ClientID)
	return c, nil
}

// IsConnected reports whether the broker connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close publishes the offline status message and disconnects.
func (c *Client) Close() {
	if c.client.IsConnectionOpen() {
		token := c.client.Publish(StatusTopic(), byte(c.cfg.QoS), true, []byte("offline"))
		token.WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(250)
	c.logger.Info("mqtt disconnected")
}
