package pipeline

import (
	"context"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
)

// Logger defines the logging interface used by the Pipeline.
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

// BridgeExecutor runs code on real hardware through an external process.
type BridgeExecutor interface {
	// Attached reports whether a live bridge serves the given device id.
	Attached(deviceID string) bool

	// Execute feeds code to the bridge and streams output lines through
	// onOutput until completion. It returns the final result line.
	Execute(ctx context.Context, deviceID, code string, onOutput func(line string)) (string, error)
}

// Pipeline drives the upload and execute flows for attached devices.
//
// All delayed stages are scheduled on the session context, so a disconnect
// or connection close while a stage is pending drops the completion
// silently instead of writing to a torn-down session.
type Pipeline struct {
	sim    config.SimulationConfig
	bridge BridgeExecutor
	logger Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBridge enables the real-hardware execution strategy.
func WithBridge(b BridgeExecutor) Option {
	return func(p *Pipeline) { p.bridge = b }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline with the given simulation timing windows.
func New(sim config.SimulationConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		sim:    sim,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Upload runs the simulated compile stage and then chains into Execute.
// Exactly one execution follows each upload; the client does not re-send
// executeCode.
func (p *Pipeline) Upload(conn *session.Conn, sess *session.DeviceSession, code string) {
	deviceID := sess.DeviceID()
	lo, hi := p.sim.CompileDelayWindow()

	session.After(sess.Context(), session.Jitter(lo, hi), func() {
		if !sess.Alive() {
			return
		}
		if err := conn.Send(protocol.NewCodeUploaded(deviceID, len(code))); err != nil {
			p.logger.Warn("codeUploaded send failed", "device_id", deviceID, "error", err)
		}
		p.logger.Info("code uploaded", "device_id", deviceID, "code_length", len(code))

		session.After(sess.Context(), p.sim.AutoRunDelay(), func() {
			if !sess.Alive() {
				return
			}
			p.Execute(conn, sess, code)
		})
	})
}

// Execute runs code against the session's device.
// When a live bridge serves the device id the code goes to real hardware;
// otherwise the simulated scanner produces the output after a short delay.
func (p *Pipeline) Execute(conn *session.Conn, sess *session.DeviceSession, code string) {
	deviceID := sess.DeviceID()

	if p.bridge != nil && p.bridge.Attached(deviceID) {
		go p.executeBridge(conn, sess, code)
		return
	}

	lo, hi := p.sim.ExecuteDelayWindow()
	session.After(sess.Context(), session.Jitter(lo, hi), func() {
		if !sess.Alive() {
			return
		}
		output := Simulate(code)
		if err := conn.Send(protocol.NewCodeExecuted(deviceID, output)); err != nil {
			p.logger.Warn("codeExecuted send failed", "device_id", deviceID, "error", err)
		}
		p.logger.Debug("simulated execution complete", "device_id", deviceID)
	})
}

// Welcome schedules the canned post-connect action for the session's class.
func (p *Pipeline) Welcome(conn *session.Conn, sess *session.DeviceSession) {
	frame := WelcomeFrame(sess.Descriptor())
	if frame == nil {
		return
	}

	session.After(sess.Context(), p.sim.WelcomeDelay(), func() {
		if !sess.Alive() {
			return
		}
		if err := conn.Send(frame); err != nil {
			p.logger.Warn("welcome action send failed", "device_id", sess.DeviceID(), "error", err)
		}
	})
}

// executeBridge streams one execution through the external bridge process.
// Output lines are relayed as they arrive; a timeout or bridge error still
// yields a codeExecuted frame so the client's flow terminates.
func (p *Pipeline) executeBridge(conn *session.Conn, sess *session.DeviceSession, code string) {
	deviceID := sess.DeviceID()

	result, err := p.bridge.Execute(sess.Context(), deviceID, code, func(line string) {
		if !sess.Alive() {
			return
		}
		conn.Send(protocol.CodeOutput{
			Type:     protocol.TypeCodeOutput,
			DeviceID: deviceID,
			Output:   line,
		})
	})

	if !sess.Alive() {
		return
	}

	if err != nil {
		p.logger.Error("bridge execution failed", "device_id", deviceID, "error", err)
		conn.Send(protocol.NewError("execution failed: " + err.Error()))
		conn.Send(protocol.NewCodeExecuted(deviceID, ""))
		return
	}

	conn.Send(protocol.NewCodeExecuted(deviceID, result))
}
