package pipeline

import (
	"github.com/openblock-labs/hwbridge/internal/catalog"
	"github.com/openblock-labs/hwbridge/internal/protocol"
)

// picoBlinkScript is the canned MicroPython program injected after a Pico
// connect, so block-based GUIs have something visible to show immediately.
const picoBlinkScript = `from machine import Pin
import time

led = Pin(25, Pin.OUT)

for i in range(5):
    led.on()
    print("💡 LED encendido")
    time.sleep(0.5)
    led.off()
    print("💡 LED apagado")
    time.sleep(0.5)

print("✅ Programa terminado")
`

// WelcomeFrame returns the canned post-connect frame for a device class,
// or nil when the class has none. Boards blink their onboard LED, the
// micro:bit shows a matrix pattern, and the Pico gets a script injection.
func WelcomeFrame(desc *catalog.Descriptor) any {
	switch desc.Class {
	case catalog.ClassArduino:
		return protocol.DeviceAction{
			Type:     protocol.TypeDeviceAction,
			DeviceID: desc.ID,
			Action:   "led_blink",
			Pin:      "D13",
			Message:  "LED integrado parpadeando",
		}
	case catalog.ClassESP32:
		return protocol.DeviceAction{
			Type:     protocol.TypeDeviceAction,
			DeviceID: desc.ID,
			Action:   "led_blink",
			Pin:      "D2",
			Message:  "LED integrado parpadeando",
		}
	case catalog.ClassMicrobit:
		return protocol.DeviceAction{
			Type:     protocol.TypeDeviceAction,
			DeviceID: desc.ID,
			Action:   "led_matrix",
			Pattern:  "heart",
			Message:  "Mostrando patrón en la matriz LED",
		}
	case catalog.ClassPico:
		return protocol.CodeInjected{
			Type:     protocol.TypeCodeInjected,
			DeviceID: desc.ID,
			Code:     picoBlinkScript,
			Message:  "Código de ejemplo cargado",
		}
	default:
		return nil
	}
}
