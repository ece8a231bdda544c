// Package handler implements the request dispatcher: protocol dispatch,
// the per-blob state-machine transitions, and eviction-on-overflow (spec
// §4.G). Exactly one request is served per call to Serve, under the
// storage lock in the mode the opcode requires; the whole critical section
// — mutation, eviction, and every response packet it produces — runs
// before the lock is released.
package handler

import (
	"github.com/joshuarubin/blobstore/internal/config"
	"github.com/joshuarubin/blobstore/internal/connreg"
	"github.com/joshuarubin/blobstore/internal/rwlock"
	"github.com/joshuarubin/blobstore/internal/signalshim"
	"github.com/joshuarubin/blobstore/internal/storage"
	"github.com/joshuarubin/blobstore/internal/wire"
	"github.com/joshuarubin/blobstore/internal/wire/rle"
)

// Outcome is what the acceptor should do with a client handle after Serve
// returns.
type Outcome int

const (
	// Idle means the connection should be re-added to the idle set (spawn
	// a new idle-watcher).
	Idle Outcome = iota
	// Parked means the connection is now held in some blob's lock wait
	// queue; the acceptor must not watch it for readability until it is
	// later reported Idle or Disconnected as a SideEffect.
	Parked
	// Disconnected means the connection is closed and removed from the
	// registry; the acceptor should just forget about it.
	Disconnected
)

// SideEffect reports an Outcome for a client handle other than the one
// Serve was called for — e.g. a lock waiter promoted to holder, or a
// waiter failed out of a destroyed blob's queue.
type SideEffect struct {
	Handle  storage.ClientHandle
	Outcome Outcome
}

// Server is the request dispatcher.
type Server struct {
	cfg      *config.Config
	lock     *rwlock.RWLock
	storage  *storage.Storage
	registry *connreg.Registry
	log      *signalshim.Logger
}

// New creates a request dispatcher over st, guarded by lock, serving
// connections tracked in registry.
func New(cfg *config.Config, lock *rwlock.RWLock, st *storage.Storage, registry *connreg.Registry, log *signalshim.Logger) *Server {
	return &Server{cfg: cfg, lock: lock, storage: st, registry: registry, log: log}
}

// Serve reads and serves exactly one request from handle's connection. It
// returns the Outcome for handle itself, plus any SideEffects for other
// handles woken as a consequence (deferred lock replies, destroyed-blob
// waiters).
func (s *Server) Serve(handle storage.ClientHandle) (Outcome, []SideEffect) {
	c, ok := s.registry.Get(handle)
	if !ok {
		return Disconnected, nil
	}

	pkt, err := wire.ReadPacket(c.R)
	if err != nil {
		effects := s.disconnectOne(handle, c)
		return Disconnected, effects
	}

	switch pkt.Op {
	case wire.OpOpenFile:
		return s.handleOpen(handle, c, pkt)
	case wire.OpReadFile:
		return s.handleRead(handle, c, pkt)
	case wire.OpReadNFiles:
		return s.handleReadN(handle, c, pkt)
	case wire.OpWriteFile:
		return s.handleWrite(handle, c, pkt)
	case wire.OpAppendFile:
		return s.handleAppend(handle, c, pkt)
	case wire.OpLockFile:
		return s.handleLock(handle, c, pkt)
	case wire.OpUnlockFile:
		return s.handleUnlock(handle, c, pkt)
	case wire.OpCloseFile:
		return s.handleClose(handle, c, pkt)
	case wire.OpRemoveFile:
		return s.handleRemove(handle, c, pkt)
	default:
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
}

// send writes pkt to c, compressing DATA/FILE_P payloads first if
// configured. It reports ok=false on any write error, meaning c is now
// considered disconnected by the caller.
func (s *Server) send(c *connreg.Conn, pkt *wire.Packet) (ok bool) {
	if s.cfg.EnableCompression && (pkt.Op == wire.OpData || pkt.Op == wire.OpFileP) {
		data, compressed := rle.EncodeIfSmaller(pkt.Data)
		pkt.Data, pkt.Compressed = data, compressed
	}

	if err := wire.WritePacket(c.Net, pkt); err != nil {
		return false
	}
	return true
}

// disconnectOne performs the full disconnect path (spec §4.G step 2 /
// §4.F "client disconnect"): acquire the write lock, unlock everything the
// client held and remove it from every open set and wait queue, release,
// close the socket, drop it from the registry. The deferred COMP replies to
// any waiters promoted as a side effect are sent here, under the write
// lock; their Outcomes are returned for Serve to pass back to the acceptor.
func (s *Server) disconnectOne(handle storage.ClientHandle, c *connreg.Conn) []SideEffect {
	s.lock.Lock()
	promotions := s.storage.ClientCleanup(handle)
	effects := s.deliverPromotions(promotions)
	s.lock.Unlock()

	_ = c.Net.Close()
	s.registry.Remove(handle)

	if s.log != nil {
		s.log.Info("client disconnected", "handle", handle, "conn", c.LogID)
	}

	return effects
}

// deliverPromotions sends the deferred COMP reply to every waiter that was
// just promoted to lock holder, and recursively tears down any that turn
// out to already be unreachable. Must be called with the write lock held.
func (s *Server) deliverPromotions(promotions []storage.Promotion) []SideEffect {
	var effects []SideEffect

	for _, p := range promotions {
		pc, ok := s.registry.Get(p.Client)
		if !ok {
			continue
		}
		if s.send(pc, wire.Comp()) {
			effects = append(effects, SideEffect{Handle: p.Client, Outcome: Idle})
		} else {
			more := s.storage.ClientCleanup(p.Client)
			effects = append(effects, s.deliverPromotions(more)...)
			effects = append(effects, SideEffect{Handle: p.Client, Outcome: Disconnected})
			_ = pc.Net.Close()
			s.registry.Remove(p.Client)
		}
	}

	return effects
}

// failWaiters sends ERROR FILE_DOES_NOT_EXIST to every waiter in waiters
// (a destroyed blob's lock queue, per spec §4.E/§4.F) and reports an
// Outcome for each: Idle if the error was delivered, Disconnected if the
// waiter was already gone.
func (s *Server) failWaiters(waiters []storage.ClientHandle) []SideEffect {
	effects := make([]SideEffect, 0, len(waiters))
	for _, h := range waiters {
		wc, ok := s.registry.Get(h)
		if !ok {
			continue
		}
		if s.send(wc, wire.Error(wire.ErrFileDoesNotExist)) {
			effects = append(effects, SideEffect{Handle: h, Outcome: Idle})
		} else {
			effects = append(effects, SideEffect{Handle: h, Outcome: Disconnected})
			_ = wc.Net.Close()
			s.registry.Remove(h)
		}
	}
	return effects
}

// sendEvicted streams every evicted blob back to requester as FILE_P (the
// writer/appender eviction path, spec §4.G WRITE_FILE/APPEND_FILE rows),
// and fails every waiter each evicted blob had queued.
func (s *Server) sendEvicted(requester *connreg.Conn, evicted []storage.Evicted) (requesterOK bool, effects []SideEffect) {
	requesterOK = true
	for _, ev := range evicted {
		if requesterOK {
			requesterOK = s.send(requester, wire.FileP(ev.Blob.Name, ev.Blob.Bytes))
		}
		effects = append(effects, s.failWaiters(ev.Waiters)...)
	}
	return requesterOK, effects
}
