package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
)

// buildOptions translates our config into paho client options.
func buildOptions(cfg config.MQTTConfig, logger Logger) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetOrderMatters(false)

	// Broker-side presence: retained online/offline on the status topic.
	opts.SetWill(StatusTopic(), "offline", byte(cfg.QoS), true)

	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		token := client.Publish(StatusTopic(), byte(cfg.QoS), true, []byte("online"))
		token.WaitTimeout(publishTimeout)
		logger.Debug("mqtt connection established")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		logger.Debug("mqtt reconnecting")
	})

	return opts
}

// brokerURL builds the broker URL from config.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}
