package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openblock-labs/hwbridge/internal/catalog"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
	"github.com/openblock-labs/hwbridge/internal/infrastructure/logging"
	"github.com/openblock-labs/hwbridge/internal/pipeline"
	"github.com/openblock-labs/hwbridge/internal/protocol"
	"github.com/openblock-labs/hwbridge/internal/session"
	"github.com/openblock-labs/hwbridge/internal/telemetry"
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

func (c *captureTransport) waitFor(t *testing.T, match func(any) bool) any {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		for _, f := range c.snapshot() {
			if match(f) {
				return f
			}
		}
		select {
		case <-deadline:
			t.Fatalf("frame never arrived; have %#v", c.snapshot())
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation = config.SimulationConfig{
		ConnectDelayMinMs: 1, ConnectDelayMaxMs: 2,
		CompileDelayMinMs: 1, CompileDelayMaxMs: 2,
		ExecuteDelayMinMs: 1, ExecuteDelayMaxMs: 2,
		AutoRunDelayMs: 1,
		WelcomeDelayMs: 1,
		TelemetryMinMs: 1000, TelemetryMaxMs: 2000,
	}
	return cfg
}

func newTestServer(t *testing.T) (*Server, *session.Registry) {
	t.Helper()

	cfg := testConfig()
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	registry := session.NewRegistry()
	lo, hi := cfg.Simulation.TelemetryWindow()

	s := NewServer(
		cfg,
		logger,
		"test",
		catalog.Builtin(),
		registry,
		pipeline.New(cfg.Simulation),
		telemetry.NewGenerator(lo, hi),
	)
	s.runCtx = context.Background()
	return s, registry
}

func send(s *Server, conn *session.Conn, req protocol.Request) {
	data, _ := json.Marshal(req)
	s.dispatch(conn, data)
}

func TestDispatchRejectsMalformedInput(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	s.dispatch(conn, []byte("not json"))
	s.dispatch(conn, []byte(`{"deviceId":"x"}`))
	s.dispatch(conn, []byte(`{"type":"bogus"}`))

	frames := transport.snapshot()
	if len(frames) != 3 {
		t.Fatalf("expected 3 error frames, got %d", len(frames))
	}
	for i, f := range frames {
		if _, ok := f.(protocol.Error); !ok {
			t.Errorf("frame %d should be an error, got %T", i, f)
		}
	}
}

func TestPingPong(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypePing})

	frames := transport.snapshot()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if pong, ok := frames[0].(protocol.Pong); !ok || pong.Type != protocol.TypePong {
		t.Errorf("expected pong, got %#v", frames[0])
	}
}

func TestGetDeviceListReflectsAttachment(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeGetDeviceList})

	list, ok := transport.snapshot()[0].(protocol.DeviceList)
	if !ok {
		t.Fatalf("expected deviceList, got %#v", transport.snapshot()[0])
	}
	if list.Count != 4 || len(list.Devices) != 4 {
		t.Fatalf("expected 4 devices, got %d", list.Count)
	}
	for _, d := range list.Devices {
		if d.Connected || d.Status != "available" {
			t.Errorf("device %s should be available, got %+v", d.ID, d)
		}
	}

	desc, _ := s.catalog.Get("arduino-uno")
	if _, err := conn.Attach(desc, "", 9600); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	send(s, conn, protocol.Request{Type: protocol.TypeGetDeviceList})

	list = transport.snapshot()[1].(protocol.DeviceList)
	for _, d := range list.Devices {
		want := d.ID == "arduino-uno"
		if d.Connected != want {
			t.Errorf("device %s connected=%v, want %v", d.ID, d.Connected, want)
		}
	}
}

func TestConnectDeviceFlow(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeConnectDevice, DeviceID: "arduino-uno"})

	frame := transport.waitFor(t, func(f any) bool {
		_, ok := f.(protocol.DeviceConnected)
		return ok
	})
	connected := frame.(protocol.DeviceConnected)
	if connected.DeviceID != "arduino-uno" || connected.Baudrate != 9600 {
		t.Errorf("unexpected deviceConnected %+v", connected)
	}
	if len(connected.Capabilities) == 0 || len(connected.Pins.Digital) == 0 {
		t.Error("deviceConnected should carry the capability and pin snapshot")
	}
	if !conn.Attached("arduino-uno") {
		t.Error("session should exist after connect")
	}

	// Welcome action follows for the arduino class.
	action := transport.waitFor(t, func(f any) bool {
		_, ok := f.(protocol.DeviceAction)
		return ok
	}).(protocol.DeviceAction)
	if action.Action != "led_blink" || action.Pin != "D13" {
		t.Errorf("unexpected welcome action %+v", action)
	}
}

func TestConnectUnknownDevice(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeConnectDevice, DeviceID: "nope"})

	frames := transport.snapshot()
	if len(frames) != 1 {
		t.Fatalf("expected immediate error, got %d frames", len(frames))
	}
	errFrame, ok := frames[0].(protocol.Error)
	if !ok || !strings.Contains(errFrame.Message, "not found") {
		t.Errorf("unexpected frame %#v", frames[0])
	}
	if conn.SessionCount() != 0 {
		t.Error("no session should exist after failed connect")
	}
}

func TestConnectDeviceTwice(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeConnectDevice, DeviceID: "esp32"})
	transport.waitFor(t, func(f any) bool {
		_, ok := f.(protocol.DeviceConnected)
		return ok
	})
	sessBefore, _ := conn.Session("esp32")

	send(s, conn, protocol.Request{Type: protocol.TypeConnectDevice, DeviceID: "esp32"})
	transport.waitFor(t, func(f any) bool {
		e, ok := f.(protocol.Error)
		return ok && strings.Contains(e.Message, "already connected")
	})

	sessAfter, ok := conn.Session("esp32")
	if !ok || sessAfter != sessBefore {
		t.Error("original session should be unaffected by the duplicate connect")
	}
}

func TestDisconnectDevice(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	desc, _ := s.catalog.Get("microbit")
	conn.Attach(desc, "", 115200)

	send(s, conn, protocol.Request{Type: protocol.TypeDisconnectDevice, DeviceID: "microbit"})

	last := transport.snapshot()[len(transport.snapshot())-1]
	if dd, ok := last.(protocol.DeviceDisconnected); !ok || dd.DeviceID != "microbit" {
		t.Fatalf("expected deviceDisconnected, got %#v", last)
	}
	if conn.Attached("microbit") {
		t.Error("session should be gone after disconnect")
	}

	// Second disconnect errors.
	send(s, conn, protocol.Request{Type: protocol.TypeDisconnectDevice, DeviceID: "microbit"})
	last = transport.snapshot()[len(transport.snapshot())-1]
	if _, ok := last.(protocol.Error); !ok {
		t.Errorf("expected error on double disconnect, got %#v", last)
	}
}

func TestDeviceStatusUptime(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	desc, _ := s.catalog.Get("raspberry-pi-pico")
	conn.Attach(desc, "", 9600)

	send(s, conn, protocol.Request{Type: protocol.TypeGetDeviceStatus, DeviceID: "raspberry-pi-pico"})
	status, ok := transport.snapshot()[0].(protocol.DeviceStatus)
	if !ok {
		t.Fatalf("expected deviceStatus, got %#v", transport.snapshot()[0])
	}
	if status.Status != "connected" || status.Uptime < 0 || status.Uptime > 2 {
		t.Errorf("unexpected status %+v", status)
	}

	send(s, conn, protocol.Request{Type: protocol.TypeGetDeviceStatus, DeviceID: "arduino-uno"})
	if _, ok := transport.snapshot()[1].(protocol.Error); !ok {
		t.Error("status of unattached device should error")
	}
}

func TestSendDataEcho(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeSendData, DeviceID: "esp32", Data: json.RawMessage(`{"x":1}`)})
	if _, ok := transport.snapshot()[0].(protocol.Error); !ok {
		t.Error("sendData without session should error")
	}

	desc, _ := s.catalog.Get("esp32")
	conn.Attach(desc, "", 115200)
	send(s, conn, protocol.Request{Type: protocol.TypeSendData, DeviceID: "esp32", Data: json.RawMessage(`{"x":1}`)})

	echo, ok := transport.snapshot()[1].(protocol.DeviceData)
	if !ok || echo.DeviceID != "esp32" {
		t.Fatalf("expected deviceData echo, got %#v", transport.snapshot()[1])
	}
}

func TestUploadAndExecuteRequireSession(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	send(s, conn, protocol.Request{Type: protocol.TypeUploadCode, DeviceID: "esp32", Code: "print('x')"})
	send(s, conn, protocol.Request{Type: protocol.TypeExecuteCode, DeviceID: "esp32", Code: "print('x')"})

	frames := transport.snapshot()
	if len(frames) != 2 {
		t.Fatalf("expected 2 error frames, got %d", len(frames))
	}
	for _, f := range frames {
		if _, ok := f.(protocol.Error); !ok {
			t.Errorf("expected error frame, got %#v", f)
		}
	}
}

func TestExecuteCodeSimulated(t *testing.T) {
	s, registry := newTestServer(t)
	transport := &captureTransport{}
	conn := registry.Register(context.Background(), transport)

	desc, _ := s.catalog.Get("arduino-uno")
	conn.Attach(desc, "", 9600)

	send(s, conn, protocol.Request{Type: protocol.TypeExecuteCode, DeviceID: "arduino-uno", Code: "print('hello')"})

	executed := transport.waitFor(t, func(f any) bool {
		_, ok := f.(protocol.CodeExecuted)
		return ok
	}).(protocol.CodeExecuted)
	if executed.Output != "hello" {
		t.Errorf("expected output hello, got %q", executed.Output)
	}
}
