package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openblock-labs/hwbridge/internal/catalog"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
)

type captureTransport struct {
	mu     sync.Mutex
	frames []any
}

func (c *captureTransport) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, v)
	return nil
}

func (c *captureTransport) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.frames))
	copy(out, c.frames)
	return out
}

// fastSim keeps every artificial delay in the low milliseconds.
func fastSim() config.SimulationConfig {
	return config.SimulationConfig{
		ConnectDelayMinMs: 1, ConnectDelayMaxMs: 2,
		CompileDelayMinMs: 1, CompileDelayMaxMs: 2,
		ExecuteDelayMinMs: 1, ExecuteDelayMaxMs: 2,
		AutoRunDelayMs: 1,
		WelcomeDelayMs: 1,
		TelemetryMinMs: 1, TelemetryMaxMs: 2,
	}
}

func attach(t *testing.T, transport session.Transport, class catalog.Class, id string) (*session.Conn, *session.DeviceSession) {
	t.Helper()
	reg := session.NewRegistry()
	conn := reg.Register(context.Background(), transport)
	sess, err := conn.Attach(&catalog.Descriptor{ID: id, Class: class}, "", 9600)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	return conn, sess
}

func waitFrames(t *testing.T, transport *captureTransport, n int) []any {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		frames := transport.snapshot()
		if len(frames) >= n {
			return frames
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, have %d", n, len(transport.snapshot()))
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func TestUploadChainsIntoExactlyOneExecution(t *testing.T) {
	transport := &captureTransport{}
	conn, sess := attach(t, transport, catalog.ClassArduino, "arduino-uno")

	p := New(fastSim())
	p.Upload(conn, sess, "print('hola')")

	frames := waitFrames(t, transport, 2)

	uploaded, ok := frames[0].(protocol.CodeUploaded)
	if !ok {
		t.Fatalf("first frame should be codeUploaded, got %T", frames[0])
	}
	if uploaded.CodeLength != len("print('hola')") {
		t.Errorf("wrong code length %d", uploaded.CodeLength)
	}

	executed, ok := frames[1].(protocol.CodeExecuted)
	if !ok {
		t.Fatalf("second frame should be codeExecuted, got %T", frames[1])
	}
	if executed.Output != "hola" {
		t.Errorf("wrong output %q", executed.Output)
	}

	// No second execution shows up later.
	time.Sleep(30 * time.Millisecond)
	if got := len(transport.snapshot()); got != 2 {
		t.Errorf("expected exactly 2 frames, got %d", got)
	}
}

func TestExecuteDroppedAfterDetach(t *testing.T) {
	transport := &captureTransport{}
	conn, sess := attach(t, transport, catalog.ClassArduino, "arduino-uno")

	sim := fastSim()
	sim.ExecuteDelayMinMs = 50
	sim.ExecuteDelayMaxMs = 60

	p := New(sim)
	p.Execute(conn, sess, "print('tarde')")
	conn.Detach("arduino-uno")

	time.Sleep(100 * time.Millisecond)
	if got := len(transport.snapshot()); got != 0 {
		t.Errorf("stale execution should be dropped, got %d frames", got)
	}
}

func TestWelcomeFramesPerClass(t *testing.T) {
	cases := []struct {
		class   catalog.Class
		action  string
		pin     string
		pattern string
	}{
		{catalog.ClassArduino, "led_blink", "D13", ""},
		{catalog.ClassESP32, "led_blink", "D2", ""},
		{catalog.ClassMicrobit, "led_matrix", "", "heart"},
	}

	for _, tc := range cases {
		frame := WelcomeFrame(&catalog.Descriptor{ID: "dev", Class: tc.class})
		action, ok := frame.(protocol.DeviceAction)
		if !ok {
			t.Fatalf("class %q: expected DeviceAction, got %T", tc.class, frame)
		}
		if action.Action != tc.action || action.Pin != tc.pin || action.Pattern != tc.pattern {
			t.Errorf("class %q: unexpected frame %+v", tc.class, action)
		}
	}

	frame := WelcomeFrame(&catalog.Descriptor{ID: "raspberry-pi-pico", Class: catalog.ClassPico})
	injected, ok := frame.(protocol.CodeInjected)
	if !ok {
		t.Fatalf("pico class: expected CodeInjected, got %T", frame)
	}
	if injected.Code == "" {
		t.Error("pico injection should carry a script")
	}
}

func TestWelcomeDelivery(t *testing.T) {
	transport := &captureTransport{}
	conn, sess := attach(t, transport, catalog.ClassESP32, "esp32")

	p := New(fastSim())
	p.Welcome(conn, sess)

	frames := waitFrames(t, transport, 1)
	action, ok := frames[0].(protocol.DeviceAction)
	if !ok || action.Pin != "D2" {
		t.Fatalf("unexpected welcome frame %#v", frames[0])
	}
}

// scriptedBridge fakes the hardware path with fixed output lines.
type scriptedBridge struct {
	lines  []string
	result string
	err    error
}

func (b *scriptedBridge) Attached(string) bool { return true }

func (b *scriptedBridge) Execute(ctx context.Context, deviceID, code string, onOutput func(string)) (string, error) {
	for _, line := range b.lines {
		onOutput(line)
	}
	return b.result, b.err
}

func TestExecutePrefersBridge(t *testing.T) {
	transport := &captureTransport{}
	conn, sess := attach(t, transport, catalog.ClassPico, "raspberry-pi-pico")

	bridge := &scriptedBridge{lines: []string{"line 1", "line 2"}, result: "done"}
	p := New(fastSim(), WithBridge(bridge))
	p.Execute(conn, sess, "print('real')")

	frames := waitFrames(t, transport, 3)

	for i, want := range []string{"line 1", "line 2"} {
		out, ok := frames[i].(protocol.CodeOutput)
		if !ok || out.Output != want {
			t.Fatalf("frame %d: expected CodeOutput %q, got %#v", i, want, frames[i])
		}
	}
	executed, ok := frames[2].(protocol.CodeExecuted)
	if !ok || executed.Output != "done" {
		t.Fatalf("expected codeExecuted with result, got %#v", frames[2])
	}
}
