// Package session tracks live client connections and the devices each one
// has attached.
//
// A Conn represents one WebSocket client; a DeviceSession represents one
// device attachment within that connection. Every session context descends
// from its connection context, so closing a connection tears down all of
// its sessions and cancels their pending timers in one step. Delayed work
// (simulated latency, auto-run chaining) goes through After, which drops
// silently when the owning context has already been cancelled.
package session
