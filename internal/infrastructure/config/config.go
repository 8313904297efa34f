package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the hardware bridge server.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Simulation SimulationConfig `yaml:"simulation"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket connection settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
	SendBufferSize int    `yaml:"send_buffer_size"`
}

// CatalogConfig selects the device catalog source.
// When Path is empty the built-in catalog is used.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// SimulationConfig contains the artificial latency windows, in milliseconds.
// Each delay is sampled uniformly from [Min, Max] independently per operation.
type SimulationConfig struct {
	ConnectDelayMinMs int `yaml:"connect_delay_min_ms"`
	ConnectDelayMaxMs int `yaml:"connect_delay_max_ms"`
	CompileDelayMinMs int `yaml:"compile_delay_min_ms"`
	CompileDelayMaxMs int `yaml:"compile_delay_max_ms"`
	ExecuteDelayMinMs int `yaml:"execute_delay_min_ms"`
	ExecuteDelayMaxMs int `yaml:"execute_delay_max_ms"`
	AutoRunDelayMs    int `yaml:"auto_run_delay_ms"`
	WelcomeDelayMs    int `yaml:"welcome_delay_ms"`
	TelemetryMinMs    int `yaml:"telemetry_min_ms"`
	TelemetryMaxMs    int `yaml:"telemetry_max_ms"`
}

// BridgeConfig contains settings for the external hardware bridge subprocess.
type BridgeConfig struct {
	// Enabled turns on the real-hardware execution path.
	Enabled bool `yaml:"enabled"`

	// DeviceID is the catalog device the bridge serves (e.g. "raspberry-pi-pico").
	DeviceID string `yaml:"device_id"`

	// Binary is the path to the bridge executable (e.g. "python3").
	Binary string `yaml:"binary"`

	// Args are passed before the mode flag (e.g. the bridge script path).
	Args []string `yaml:"args"`

	// Port is the serial port handed to the bridge on startup.
	// When empty the first discovered port is used.
	Port string `yaml:"port"`

	// ExecTimeoutSeconds bounds a single code execution on the bridge.
	ExecTimeoutSeconds int `yaml:"exec_timeout_seconds"`

	// GracefulTimeoutSeconds is how long to wait for shutdown before SIGKILL.
	GracefulTimeoutSeconds int `yaml:"graceful_timeout_seconds"`
}

// MQTTConfig contains MQTT broker connection settings for telemetry fan-out.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for telemetry metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// AuditConfig contains settings for the SQLite session event trail.
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HWBRIDGE_SECTION_KEY
// For example: HWBRIDGE_SERVER_HOST, HWBRIDGE_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
// The defaults alone form a valid configuration; a config file is optional.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8765,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 65536,
			PingInterval:   30,
			PongTimeout:    10,
			SendBufferSize: 256,
		},
		Simulation: SimulationConfig{
			ConnectDelayMinMs: 500,
			ConnectDelayMaxMs: 1500,
			CompileDelayMinMs: 1000,
			CompileDelayMaxMs: 3000,
			ExecuteDelayMinMs: 500,
			ExecuteDelayMaxMs: 1500,
			AutoRunDelayMs:    500,
			WelcomeDelayMs:    700,
			TelemetryMinMs:    1000,
			TelemetryMaxMs:    3000,
		},
		Bridge: BridgeConfig{
			DeviceID:               "raspberry-pi-pico",
			Binary:                 "python3",
			ExecTimeoutSeconds:     10,
			GracefulTimeoutSeconds: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hwbridge",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Audit: AuditConfig{
			Path:        "./data/hwbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HWBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HWBRIDGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HWBRIDGE_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("HWBRIDGE_BRIDGE_PORT"); v != "" {
		cfg.Bridge.Port = v
	}
	if v := os.Getenv("HWBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HWBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HWBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("HWBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("HWBRIDGE_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.WebSocket.Path == "" {
		errs = append(errs, "websocket.path is required")
	}

	checkWindow := func(name string, minMs, maxMs int) {
		if minMs < 0 || maxMs < minMs {
			errs = append(errs, fmt.Sprintf("simulation.%s window is invalid (min %d, max %d)", name, minMs, maxMs))
		}
	}
	checkWindow("connect_delay", c.Simulation.ConnectDelayMinMs, c.Simulation.ConnectDelayMaxMs)
	checkWindow("compile_delay", c.Simulation.CompileDelayMinMs, c.Simulation.CompileDelayMaxMs)
	checkWindow("execute_delay", c.Simulation.ExecuteDelayMinMs, c.Simulation.ExecuteDelayMaxMs)
	checkWindow("telemetry", c.Simulation.TelemetryMinMs, c.Simulation.TelemetryMaxMs)

	if c.Bridge.Enabled {
		if c.Bridge.Binary == "" {
			errs = append(errs, "bridge.binary is required when bridge.enabled is true")
		}
		if c.Bridge.DeviceID == "" {
			errs = append(errs, "bridge.device_id is required when bridge.enabled is true")
		}
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb.enabled is true")
		}
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		errs = append(errs, "audit.path is required when audit.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ConnectDelayWindow returns the connect delay bounds as Durations.
func (c *SimulationConfig) ConnectDelayWindow() (time.Duration, time.Duration) {
	return msWindow(c.ConnectDelayMinMs, c.ConnectDelayMaxMs)
}

// CompileDelayWindow returns the compile delay bounds as Durations.
func (c *SimulationConfig) CompileDelayWindow() (time.Duration, time.Duration) {
	return msWindow(c.CompileDelayMinMs, c.CompileDelayMaxMs)
}

// ExecuteDelayWindow returns the execute delay bounds as Durations.
func (c *SimulationConfig) ExecuteDelayWindow() (time.Duration, time.Duration) {
	return msWindow(c.ExecuteDelayMinMs, c.ExecuteDelayMaxMs)
}

// TelemetryWindow returns the telemetry interval bounds as Durations.
func (c *SimulationConfig) TelemetryWindow() (time.Duration, time.Duration) {
	return msWindow(c.TelemetryMinMs, c.TelemetryMaxMs)
}

// AutoRunDelay returns the fixed upload→execute chaining delay.
func (c *SimulationConfig) AutoRunDelay() time.Duration {
	return time.Duration(c.AutoRunDelayMs) * time.Millisecond
}

// WelcomeDelay returns the fixed delay before the post-connect welcome action.
func (c *SimulationConfig) WelcomeDelay() time.Duration {
	return time.Duration(c.WelcomeDelayMs) * time.Millisecond
}

func msWindow(minMs, maxMs int) (time.Duration, time.Duration) {
	return time.Duration(minMs) * time.Millisecond, time.Duration(maxMs) * time.Millisecond
}

// ExecTimeout returns the bridge execution timeout as a Duration.
func (c *BridgeConfig) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

// GracefulTimeout returns the bridge shutdown grace period as a Duration.
func (c *BridgeConfig) GracefulTimeout() time.Duration {
	return time.Duration(c.GracefulTimeoutSeconds) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the HTTP idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
