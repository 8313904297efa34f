// Package api exposes the server's two surfaces: the WebSocket endpoint
// speaking the device protocol with GUI clients, and a small REST API for
// health, catalog, and usage stats.
//
// Each WebSocket connection runs a read pump and a write pump; all outbound
// frames for a connection pass through its buffered send channel, which
// preserves enqueue order on the wire. Handlers never close the connection
// on protocol errors; they answer with an error frame and keep going.
package api
