package telemetry

import (
	"context"
	"time"

	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
)

// Logger defines the logging interface used by the Generator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// MetricSink receives flattened telemetry fields for long-term storage.
type MetricSink interface {
	WriteDeviceMetric(ctx context.Context, deviceID string, fields map[string]any)
}

// EventPublisher fans telemetry frames out to an external broker.
type EventPublisher interface {
	PublishTelemetry(deviceID string, payload any) error
}

// Generator emits synthetic sensor frames for attached simulated devices.
//
// One goroutine runs per device session. Frames go to the owning client as
// deviceData messages; when a sink or publisher is configured the same
// payload is mirrored there. The goroutine exits when the session context
// is cancelled.
type Generator struct {
	minInterval time.Duration
	maxInterval time.Duration
	logger      Logger
	sink        MetricSink
	publisher   EventPublisher
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator's logger.
func WithLogger(l Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMetricSink mirrors telemetry fields to a metric store.
func WithMetricSink(s MetricSink) Option {
	return func(g *Generator) { g.sink = s }
}

// WithEventPublisher mirrors telemetry frames to a broker.
func WithEventPublisher(p EventPublisher) Option {
	return func(g *Generator) { g.publisher = p }
}

// NewGenerator creates a telemetry generator with the given interval window.
func NewGenerator(minInterval, maxInterval time.Duration, opts ...Option) *Generator {
	g := &Generator{
		minInterval: minInterval,
		maxInterval: maxInterval,
		logger:      noopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start begins emitting telemetry for the given session.
// It returns immediately; emission continues until the session is detached
// or the connection closes.
func (g *Generator) Start(conn *session.Conn, sess *session.DeviceSession) {
	go g.run(conn, sess)
}

func (g *Generator) run(conn *session.Conn, sess *session.DeviceSession) {
	ctx := sess.Context()
	deviceID := sess.DeviceID()
	class := sess.Descriptor().Class

	timer := time.NewTimer(session.Jitter(g.minInterval, g.maxInterval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("telemetry stopped", "device_id", deviceID)
			return
		case <-timer.C:
		}

		if !sess.Alive() {
			return
		}

		payload := Synthesize(class)
		if err := conn.Send(protocol.NewDeviceData(deviceID, payload)); err != nil {
			g.logger.Warn("telemetry send failed", "device_id", deviceID, "error", err)
		}

		if g.publisher != nil {
			if err := g.publisher.PublishTelemetry(deviceID, payload); err != nil {
				g.logger.Warn("telemetry publish failed", "device_id", deviceID, "error", err)
			}
		}
		if g.sink != nil {
			g.sink.WriteDeviceMetric(ctx, deviceID, Fields(payload))
		}

		timer.Reset(session.Jitter(g.minInterval, g.maxInterval))
	}
}
