package catalog

// Class groups devices by the behavior they simulate: telemetry payload
// shape and the welcome action fired after connect.
type Class string

// Device classes.
const (
	ClassArduino  Class = "arduino"
	ClassESP32    Class = "esp32"
	ClassMicrobit Class = "microbit"
	ClassPico     Class = "pico"
)

// AllClasses returns all valid device class values.
func AllClasses() []Class {
	return []Class{ClassArduino, ClassESP32, ClassMicrobit, ClassPico}
}

// Capability represents what a simulated device can do.
type Capability string

// Capability constants.
const (
	CapDigital       Capability = "digital"
	CapAnalog        Capability = "analog"
	CapPWM           Capability = "pwm"
	CapSerial        Capability = "serial"
	CapWiFi          Capability = "wifi"
	CapBluetooth     Capability = "bluetooth"
	CapLEDMatrix     Capability = "led_matrix"
	CapButtons       Capability = "buttons"
	CapAccelerometer Capability = "accelerometer"
	CapTemperature   Capability = "temperature"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{
		CapDigital, CapAnalog, CapPWM, CapSerial,
		CapWiFi, CapBluetooth,
		CapLEDMatrix, CapButtons, CapAccelerometer, CapTemperature,
	}
}

// PinMap describes the named pin groups of a device.
// Digital and PWM pins are numeric; analog pins keep their board labels
// ("A0".."A5" on Arduino, bare GPIO numbers elsewhere).
type PinMap struct {
	Digital []int    `json:"digital" yaml:"digital"`
	Analog  []string `json:"analog" yaml:"analog"`
	PWM     []int    `json:"pwm" yaml:"pwm"`
}

// DeepCopy returns an independent copy of the pin map.
func (p PinMap) DeepCopy() PinMap {
	cpy := PinMap{}
	if p.Digital != nil {
		cpy.Digital = make([]int, len(p.Digital))
		copy(cpy.Digital, p.Digital)
	}
	if p.Analog != nil {
		cpy.Analog = make([]string, len(p.Analog))
		copy(cpy.Analog, p.Analog)
	}
	if p.PWM != nil {
		cpy.PWM = make([]int, len(p.PWM))
		copy(cpy.PWM, p.PWM)
	}
	return cpy
}

// Descriptor is an immutable catalog entry describing one simulated device.
type Descriptor struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Class        Class        `json:"type" yaml:"class"`
	Port         string       `json:"port" yaml:"port"`
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
	Pins         PinMap       `json:"pins" yaml:"pins"`
}

// DeepCopy creates a complete independent copy of the Descriptor.
// Slice fields are cloned so modifications to the copy never reach the
// catalog's own entry.
func (d *Descriptor) DeepCopy() *Descriptor {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}
	cpy.Pins = d.Pins.DeepCopy()
	return &cpy
}

// HasCapability reports whether the descriptor lists the given capability.
func (d *Descriptor) HasCapability(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}
