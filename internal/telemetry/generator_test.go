package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/openblock-labs/hwbridge/internal/catalog"
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

type capturePublisher struct {
	mu    sync.Mutex
	count int
}

func (p *capturePublisher) PublishTelemetry(string, any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func (p *capturePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func TestSynthesizeRanges(t *testing.T) {
	for i := 0; i < 50; i++ {
		p, ok := Synthesize(catalog.ClassArduino).(BoardPayload)
		if !ok {
			t.Fatal("arduino class should yield BoardPayload")
		}
		for pin, v := range p.AnalogReadings {
			if v < 0 || v > 1023 {
				t.Fatalf("analog %s reading %d out of range", pin, v)
			}
		}
		if p.Temperature < 20 || p.Temperature >= 30 {
			t.Fatalf("temperature %v out of range", p.Temperature)
		}
	}

	for i := 0; i < 50; i++ {
		p, ok := Synthesize(catalog.ClassMicrobit).(MicrobitPayload)
		if !ok {
			t.Fatal("microbit class should yield MicrobitPayload")
		}
		if p.LightLevel < 0 || p.LightLevel > 255 {
			t.Fatalf("light level %d out of range", p.LightLevel)
		}
		for _, axis := range []int{p.Accelerometer.X, p.Accelerometer.Y, p.Accelerometer.Z} {
			if axis < -1024 || axis > 1024 {
				t.Fatalf("accelerometer axis %d out of range", axis)
			}
		}
	}

	for i := 0; i < 50; i++ {
		p, ok := Synthesize(catalog.ClassPico).(PicoPayload)
		if !ok {
			t.Fatal("pico class should yield PicoPayload")
		}
		if p.Vsys < 4.5 || p.Vsys > 5.3 {
			t.Fatalf("vsys %v out of range", p.Vsys)
		}
	}
}

func TestFieldsCoverAllPayloads(t *testing.T) {
	for _, class := range catalog.AllClasses() {
		fields := Fields(Synthesize(class))
		if len(fields) == 0 {
			t.Errorf("class %q produced no metric fields", class)
		}
		if _, ok := fields["temperature"]; !ok {
			t.Errorf("class %q fields missing temperature", class)
		}
	}
	if Fields(struct{}{}) != nil {
		t.Error("unknown payload should yield nil fields")
	}
}

func TestGeneratorEmitsUntilDetach(t *testing.T) {
	transport := &captureTransport{}
	reg := session.NewRegistry()
	conn := reg.Register(context.Background(), transport)
	sess, err := conn.Attach(&catalog.Descriptor{ID: "arduino-uno", Class: catalog.ClassArduino}, "", 9600)
	if err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	pub := &capturePublisher{}
	g := NewGenerator(time.Millisecond, 2*time.Millisecond, WithEventPublisher(pub))
	g.Start(conn, sess)

	deadline := time.After(time.Second)
	for len(transport.snapshot()) < 3 {
		select {
		case <-deadline:
			t.Fatal("generator never produced 3 frames")
		case <-time.After(2 * time.Millisecond):
		}
	}

	conn.Detach("arduino-uno")
	time.Sleep(20 * time.Millisecond)
	after := len(transport.snapshot())
	time.Sleep(20 * time.Millisecond)
	if got := len(transport.snapshot()); got != after {
		t.Errorf("generator kept emitting after detach: %d then %d", after, got)
	}

	if pub.published() == 0 {
		t.Error("publisher never received telemetry")
	}

	for _, frame := range transport.snapshot() {
		dd, ok := frame.(protocol.DeviceData)
		if !ok {
			t.Fatalf("unexpected frame type %T", frame)
		}
		if dd.Type != protocol.TypeDeviceData || dd.DeviceID != "arduino-uno" {
			t.Fatalf("malformed frame: %+v", dd)
		}
	}
}
