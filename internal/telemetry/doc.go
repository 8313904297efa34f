// Package telemetry synthesizes periodic sensor readings for attached
// simulated devices: analog pins and pin 13 for Arduino and ESP32 boards,
// buttons, light, and accelerometer for the micro:bit, and on-chip
// temperature, LED state, and supply voltage for the Pico.
package telemetry
