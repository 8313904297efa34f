package telemetry

import (
	"math/rand"

	"github.com/openblock-labs/hwbridge/internal/catalog"
)

// BoardPayload is the telemetry frame for Arduino and ESP32 class devices.
type BoardPayload struct {
	AnalogReadings map[string]int `json:"analogReadings"`
	DigitalPin13   bool           `json:"digitalPin13"`
	Temperature    float64        `json:"temperature"`
}

// MicrobitPayload is the telemetry frame for micro:bit class devices.
type MicrobitPayload struct {
	ButtonA       bool          `json:"buttonA"`
	ButtonB       bool          `json:"buttonB"`
	LightLevel    int           `json:"lightLevel"`
	Accelerometer Accelerometer `json:"accelerometer"`
	Temperature   float64       `json:"temperature"`
}

// Accelerometer holds a three-axis reading.
type Accelerometer struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// PicoPayload is the telemetry frame for Raspberry Pi Pico class devices.
type PicoPayload struct {
	Temperature float64 `json:"temperature"`
	LedGP25     bool    `json:"ledGP25"`
	Vsys        float64 `json:"vsys"`
}

// Synthesize builds a random telemetry payload for the given device class.
// Values stay inside the physical ranges of the real sensors.
func Synthesize(class catalog.Class) any {
	switch class {
	case catalog.ClassMicrobit:
		return MicrobitPayload{
			ButtonA:    rand.Intn(2) == 0,
			ButtonB:    rand.Intn(2) == 0,
			LightLevel: rand.Intn(256),
			Accelerometer: Accelerometer{
				X: rand.Intn(2049) - 1024,
				Y: rand.Intn(2049) - 1024,
				Z: rand.Intn(2049) - 1024,
			},
			Temperature: roundedTemp(),
		}
	case catalog.ClassPico:
		return PicoPayload{
			Temperature: roundedTemp(),
			LedGP25:     rand.Intn(2) == 0,
			Vsys:        round2(4.5 + rand.Float64()*0.8),
		}
	default:
		return BoardPayload{
			AnalogReadings: map[string]int{
				"A0": rand.Intn(1024),
				"A1": rand.Intn(1024),
				"A2": rand.Intn(1024),
			},
			DigitalPin13: rand.Intn(2) == 0,
			Temperature:  roundedTemp(),
		}
	}
}

// roundedTemp returns a plausible ambient temperature in [20, 30).
func roundedTemp() float64 {
	return round2(20 + rand.Float64()*10)
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}

// Fields flattens a payload into measurement fields for metric sinks.
func Fields(payload any) map[string]any {
	switch p := payload.(type) {
	case BoardPayload:
		fields := map[string]any{
			"digital_pin13": p.DigitalPin13,
			"temperature":   p.Temperature,
		}
		for pin, v := range p.AnalogReadings {
			fields["analog_"+pin] = v
		}
		return fields
	case MicrobitPayload:
		return map[string]any{
			"button_a":    p.ButtonA,
			"button_b":    p.ButtonB,
			"light_level": p.LightLevel,
			"accel_x":     p.Accelerometer.X,
			"accel_y":     p.Accelerometer.Y,
			"accel_z":     p.Accelerometer.Z,
			"temperature": p.Temperature,
		}
	case PicoPayload:
		return map[string]any{
			"temperature": p.Temperature,
			"led_gp25":    p.LedGP25,
			"vsys":        p.Vsys,
		}
	default:
		return nil
	}
}
