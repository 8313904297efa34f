// Package protocol defines the JSON wire messages exchanged with GUI clients
// over the WebSocket transport.
//
// Inbound messages share a single Request envelope keyed by the "type" field;
// outbound frames are distinct structs, one per message kind, so each frame
// carries exactly the fields its kind defines. Timestamps are RFC3339 UTC.
package protocol
