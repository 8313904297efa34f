package catalog

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Catalog is the static, process-wide set of simulated device descriptors.
//
// It is loaded once at startup and never mutated afterwards; lookups return
// deep copies so live sessions hold snapshots the caller can mutate freely.
// All methods are safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	devices map[string]*Descriptor
}

// catalogFile is the YAML shape of an external catalog file.
type catalogFile struct {
	Devices []Descriptor `yaml:"devices"`
}

// Builtin returns the catalog of built-in simulated devices.
func Builtin() *Catalog {
	c := &Catalog{
		devices: make(map[string]*Descriptor),
	}
	for _, d := range builtinDescriptors() {
		c.devices[d.ID] = d.DeepCopy()
	}
	return c
}

// Load reads a catalog from a YAML file, replacing the built-in set.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	if len(file.Devices) == 0 {
		return nil, fmt.Errorf("%w: catalog file lists no devices", ErrInvalidCatalog)
	}

	c := &Catalog{
		devices: make(map[string]*Descriptor, len(file.Devices)),
	}
	for i := range file.Devices {
		d := file.Devices[i]
		if err := validateDescriptor(&d); err != nil {
			return nil, err
		}
		if _, exists := c.devices[d.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate device id %q", ErrInvalidCatalog, d.ID)
		}
		c.devices[d.ID] = d.DeepCopy()
	}

	return c, nil
}

// Get retrieves a descriptor by id.
// Returns ErrDeviceNotFound if the id is unknown.
// The returned descriptor is a deep copy; callers can safely modify it.
func (c *Catalog) Get(id string) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d.DeepCopy(), nil
}

// List returns all descriptors sorted by id.
// The returned descriptors are deep copies.
func (c *Catalog) List() []Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	devices := make([]Descriptor, 0, len(c.devices))
	for _, d := range c.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Count returns the number of catalog entries.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// validateDescriptor checks an externally loaded descriptor for basic sanity.
func validateDescriptor(d *Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidCatalog)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: device %q has no name", ErrInvalidCatalog, d.ID)
	}
	switch d.Class {
	case ClassArduino, ClassESP32, ClassMicrobit, ClassPico:
	default:
		return fmt.Errorf("%w: device %q has unknown class %q", ErrInvalidCatalog, d.ID, d.Class)
	}
	return nil
}

// builtinDescriptors enumerates the simulated devices shipped with the server.
// Pin maps mirror the physical boards closely enough for block-based GUIs.
func builtinDescriptors() []*Descriptor {
	return []*Descriptor{
		{
			ID:           "arduino-uno",
			Name:         "Arduino Uno",
			Class:        ClassArduino,
			Port:         "/dev/ttyACM0",
			Capabilities: []Capability{CapDigital, CapAnalog, CapPWM, CapSerial},
			Pins: PinMap{
				Digital: []int{2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
				Analog:  []string{"A0", "A1", "A2", "A3", "A4", "A5"},
				PWM:     []int{3, 5, 6, 9, 10, 11},
			},
		},
		{
			ID:           "esp32",
			Name:         "ESP32 DevKit",
			Class:        ClassESP32,
			Port:         "/dev/ttyUSB0",
			Capabilities: []Capability{CapDigital, CapAnalog, CapPWM, CapSerial, CapWiFi, CapBluetooth},
			Pins: PinMap{
				Digital: []int{2, 4, 5, 13, 14, 15, 18, 19, 21, 22, 23},
				Analog:  []string{"32", "33", "34", "35", "36", "39"},
				PWM:     []int{2, 4, 5, 13, 14, 15, 18, 19},
			},
		},
		{
			ID:           "microbit",
			Name:         "BBC micro:bit",
			Class:        ClassMicrobit,
			Port:         "/dev/ttyACM1",
			Capabilities: []Capability{CapDigital, CapAnalog, CapPWM, CapLEDMatrix, CapButtons, CapAccelerometer, CapTemperature},
			Pins: PinMap{
				Digital: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
				Analog:  []string{"0", "1", "2", "3", "4", "10"},
				PWM:     []int{0, 1, 2},
			},
		},
		{
			ID:           "raspberry-pi-pico",
			Name:         "Raspberry Pi Pico",
			Class:        ClassPico,
			Port:         "/dev/ttyACM2",
			Capabilities: []Capability{CapDigital, CapAnalog, CapPWM, CapSerial, CapTemperature},
			Pins: PinMap{
				Digital: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 25},
				Analog:  []string{"26", "27", "28"},
				PWM:     []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			},
		},
	}
}
