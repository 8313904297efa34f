package session

import (
	"context"
	"sync"
	"time"

	"github.com/openblock-labs/hwbridge/internal/catalog"
)

// Transport delivers outbound frames to one client.
// Implementations must be safe for concurrent use; a failed or closed
// transport drops frames rather than blocking the caller.
type Transport interface {
	Send(v any) error
}

// Conn is one client connection and the device sessions attached to it.
type Conn struct {
	id        uint64
	transport Transport
	ctx       context.Context
	cancel    context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*DeviceSession
	closed   bool
}

// ID returns the connection's server-assigned identifier.
func (c *Conn) ID() uint64 { return c.id }

// Context returns the connection's context. It is cancelled when the
// connection closes.
func (c *Conn) Context() context.Context { return c.ctx }

// Send forwards a frame to the client's transport.
func (c *Conn) Send(v any) error { return c.transport.Send(v) }

// Attach records a new device session on the connection.
// Returns ErrAlreadyAttached if the device is already connected and
// ErrConnClosed after Close. The session's context is a child of the
// connection's context.
func (c *Conn) Attach(desc *catalog.Descriptor, peripheralID string, baudrate int) (*DeviceSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if _, exists := c.sessions[desc.ID]; exists {
		return nil, ErrAlreadyAttached
	}

	ctx, cancel := context.WithCancel(c.ctx)
	sess := &DeviceSession{
		deviceID:     desc.ID,
		descriptor:   desc,
		peripheralID: peripheralID,
		baudrate:     baudrate,
		connectedAt:  time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
	c.sessions[desc.ID] = sess
	return sess, nil
}

// Detach removes and cancels the session for the given device.
// It is idempotent; the second return value reports whether a session
// was actually removed.
func (c *Conn) Detach(deviceID string) (*DeviceSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[deviceID]
	if !ok {
		return nil, false
	}
	delete(c.sessions, deviceID)
	sess.cancel()
	return sess, true
}

// Session returns the live session for the given device, if any.
func (c *Conn) Session(deviceID string) (*DeviceSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[deviceID]
	return sess, ok
}

// Attached reports whether the connection holds a session for the device.
func (c *Conn) Attached(deviceID string) bool {
	_, ok := c.Session(deviceID)
	return ok
}

// Sessions returns a snapshot of the connection's live sessions.
func (c *Conn) Sessions() []*DeviceSession {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*DeviceSession, 0, len(c.sessions))
	for _, sess := range c.sessions {
		out = append(out, sess)
	}
	return out
}

// SessionCount returns the number of devices attached to the connection.
func (c *Conn) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Close cancels the connection context and all session contexts.
// Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, sess := range c.sessions {
		sess.cancel()
		delete(c.sessions, id)
	}
	c.cancel()
}

// DeviceSession is one device attachment on a connection.
// Its fields are fixed at attach time; only the context carries state.
type DeviceSession struct {
	deviceID     string
	descriptor   *catalog.Descriptor
	peripheralID string
	baudrate     int
	connectedAt  time.Time
	ctx          context.Context
	cancel       context.CancelFunc
}

// DeviceID returns the attached device's catalog id.
func (s *DeviceSession) DeviceID() string { return s.deviceID }

// Descriptor returns the catalog snapshot taken at attach time.
func (s *DeviceSession) Descriptor() *catalog.Descriptor { return s.descriptor }

// PeripheralID returns the client-supplied peripheral id, if any.
func (s *DeviceSession) PeripheralID() string { return s.peripheralID }

// Baudrate returns the negotiated baudrate.
func (s *DeviceSession) Baudrate() int { return s.baudrate }

// ConnectedAt returns the attach time.
func (s *DeviceSession) ConnectedAt() time.Time { return s.connectedAt }

// Uptime returns whole seconds since the session was attached.
func (s *DeviceSession) Uptime() int64 {
	return int64(time.Since(s.connectedAt).Seconds())
}

// Context returns the session context. It is cancelled on detach or when
// the owning connection closes.
func (s *DeviceSession) Context() context.Context { return s.ctx }

// Alive reports whether the session has not been detached or closed.
func (s *DeviceSession) Alive() bool {
	return s.ctx.Err() == nil
}
