// Package connreg holds the single shared table mapping a client handle to
// its live connection. This is the concrete answer to spec §9's
// re-architecture note on cyclic graphs: the storage engine's lock wait
// queues and the acceptor's handoff queues only ever pass around the
// opaque storage.ClientHandle value; the one place an actual net.Conn
// lives is this registry, looked up by handle whenever a component needs
// to read or write bytes on the wire.
package connreg

import (
	"bufio"
	"net"
	"sync"

	"github.com/joshuarubin/blobstore/internal/connid"
	"github.com/joshuarubin/blobstore/internal/storage"
)

// Conn bundles a client's connection with the buffered reader used to
// detect readability (Peek) without losing the peeked byte before the
// packet is actually decoded.
type Conn struct {
	Handle storage.ClientHandle
	Net    net.Conn
	R      *bufio.Reader

	// LogID is a typeid-based connection identifier used only for log
	// correlation; empty if minting one failed (never fatal — the handle
	// itself is still a perfectly good, if less readable, log key).
	LogID string
}

// Registry is a thread-safe table of live connections, keyed by handle.
// Every connection lives here for its entire lifetime, whether it is
// currently idle, being served by a worker, or parked in a blob's lock
// wait queue — those are all just states the *handle* can be in; the
// registry entry itself doesn't move.
type Registry struct {
	mu    sync.RWMutex
	conns map[storage.ClientHandle]*Conn
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{conns: map[storage.ClientHandle]*Conn{}}
}

// Add registers a new connection under handle.
func (r *Registry) Add(handle storage.ClientHandle, nc net.Conn) *Conn {
	c := &Conn{Handle: handle, Net: nc, R: bufio.NewReader(nc)}
	if id, err := connid.New(); err == nil {
		c.LogID = id.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[handle] = c
	return c
}

// Get looks up the connection for handle.
func (r *Registry) Get(handle storage.ClientHandle) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[handle]
	return c, ok
}

// Remove deletes handle from the registry; it does not close the
// underlying connection (the caller is responsible for that, since close
// ordering relative to the storage lock matters — spec §4.G step 2).
func (r *Registry) Remove(handle storage.ClientHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, handle)
}

// Len reports the number of live connections, used for the
// soft-shutdown-drained termination check (spec §4.H).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
