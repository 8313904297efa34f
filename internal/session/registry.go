package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry tracks all live client connections.
// Connection ids are monotonic for the lifetime of the process.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uint64]*Conn
	nextID atomic.Uint64
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uint64]*Conn),
	}
}

// Register creates a Conn for the given transport and tracks it.
// The connection context is a child of parent, usually the server's
// run context, so server shutdown cancels every connection.
func (r *Registry) Register(parent context.Context, transport Transport) *Conn {
	ctx, cancel := context.WithCancel(parent)
	conn := &Conn{
		id:        r.nextID.Add(1),
		transport: transport,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*DeviceSession),
	}

	r.mu.Lock()
	r.conns[conn.id] = conn
	r.mu.Unlock()

	return conn
}

// Unregister removes a connection from the registry and closes it.
// Idempotent; returns whether the connection was present.
func (r *Registry) Unregister(id uint64) bool {
	r.mu.Lock()
	conn, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Get returns the connection with the given id, if still registered.
func (r *Registry) Get(id uint64) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SessionCount returns the total number of device sessions across all
// live connections.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, conn := range r.conns {
		total += conn.SessionCount()
	}
	return total
}

// CloseAll closes and removes every registered connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for id, conn := range r.conns {
		conns = append(conns, conn)
		delete(r.conns, id)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
