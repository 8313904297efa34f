package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinContainsAllClasses(t *testing.T) {
	c := Builtin()

	if c.Count() != 4 {
		t.Fatalf("expected 4 builtin devices, got %d", c.Count())
	}

	seen := make(map[Class]bool)
	for _, d := range c.List() {
		seen[d.Class] = true
	}
	for _, class := range AllClasses() {
		if !seen[class] {
			t.Errorf("builtin catalog missing class %q", class)
		}
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	c := Builtin()

	first, err := c.Get("arduino-uno")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	first.Name = "mutated"
	first.Capabilities[0] = Capability("mutated")
	first.Pins.Digital[0] = -1

	second, err := c.Get("arduino-uno")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.Name == "mutated" {
		t.Error("mutation of returned descriptor reached the catalog")
	}
	if second.Capabilities[0] == Capability("mutated") {
		t.Error("mutation of returned capabilities reached the catalog")
	}
	if second.Pins.Digital[0] == -1 {
		t.Error("mutation of returned pins reached the catalog")
	}
}

func TestGetUnknownDevice(t *testing.T) {
	c := Builtin()

	_, err := c.Get("no-such-device")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestListSortedByID(t *testing.T) {
	c := Builtin()

	devices := c.List()
	for i := 1; i < len(devices); i++ {
		if devices[i-1].ID >= devices[i].ID {
			t.Errorf("list not sorted: %q before %q", devices[i-1].ID, devices[i].ID)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `devices:
  - id: test-board
    name: Test Board
    class: arduino
    port: /dev/ttyTEST0
    capabilities: [digital, analog]
    pins:
      digital: [1, 2, 3]
      analog: ["A0"]
      pwm: [3]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Count() != 1 {
		t.Fatalf("expected 1 device, got %d", c.Count())
	}

	d, err := c.Get("test-board")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if d.Class != ClassArduino {
		t.Errorf("expected class arduino, got %q", d.Class)
	}
	if !d.HasCapability(CapAnalog) {
		t.Error("expected analog capability")
	}
	if d.HasCapability(CapWiFi) {
		t.Error("unexpected wifi capability")
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty", `devices: []`},
		{"missing id", "devices:\n  - name: No ID\n    class: arduino\n"},
		{"missing name", "devices:\n  - id: x\n    class: arduino\n"},
		{"unknown class", "devices:\n  - id: x\n    name: X\n    class: z80\n"},
		{"duplicate id", "devices:\n  - id: x\n    name: X\n    class: arduino\n  - id: x\n    name: Y\n    class: esp32\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("writing fixture: %v", err)
			}
			if _, err := Load(path); !errors.Is(err, ErrInvalidCatalog) {
				t.Errorf("expected ErrInvalidCatalog, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/catalog.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
