// Package bridge manages the external hardware bridge subprocess that
// connects the server to a real board over a serial port.
//
// The bridge speaks a line-oriented protocol on stdin/stdout: commands go
// in as single lines (CONNECT:<port>, EXECUTE_CODE:<code>, FIND_PORTS,
// QUIT) and results come back as marker-prefixed lines (PICO_BRIDGE_READY,
// PICO_CONNECTED, PICO_OUTPUT:, PICO_RESULT:, PICO_EXECUTED, PICO_ERROR:).
// The manager owns the process lifecycle, including graceful shutdown with
// a SIGKILL fallback on the whole process group.
package bridge
