// Package mqtt provides publish-only fan-out of device telemetry and
// lifecycle events to an external broker, so dashboards and recorders can
// observe the simulation without holding a WebSocket connection.
package mqtt
