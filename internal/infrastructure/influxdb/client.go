package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// pingTimeout bounds the startup health check.
const pingTimeout = 5 * time.Second

// Client writes device telemetry points to InfluxDB.
//
// Writes go through the non-blocking write API: points are batched and
// flushed in the background, and write errors surface on an error channel
// rather than at the call site. Telemetry is lossy by nature, so a failed
// batch is logged and dropped.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger
}

// NewClient creates an InfluxDB client and verifies the server is reachable.
func NewClient(ctx context.Context, cfg config.InfluxDBConfig, logger Logger) (*Client, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval * 1000))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := client.Health(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb health check: %w", err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}

	go c.drainErrors()

	logger.Debug("influxdb connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return c, nil
}

// drainErrors logs asynchronous write failures.
func (c *Client) drainErrors() {
	for err := range c.writeAPI.Errors() {
		c.logger.Warn("influxdb write failed", "error", err)
	}
}

// Close flushes pending points and releases the client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}
