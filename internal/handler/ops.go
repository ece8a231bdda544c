package handler

import (
	"github.com/joshuarubin/blobstore/internal/connreg"
	"github.com/joshuarubin/blobstore/internal/storage"
	"github.com/joshuarubin/blobstore/internal/wire"
)

// handleOpen implements the OPEN_FILE transition (spec §4.G row 1 / §4.F
// lock state). Preconditions are checked before any mutation, so there is
// nothing to roll back on failure — the blob is simply never created or
// locked.
func (s *Server) handleOpen(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	create := pkt.HasFlag(wire.OCreate)
	wantLock := pkt.HasFlag(wire.OLock)

	b, err := s.storage.Find(pkt.Name)
	exists := err == nil

	if create && exists {
		s.send(c, wire.Error(wire.ErrFileAlreadyExists))
		return Idle, nil
	}
	if !create && !exists {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if wantLock && exists && s.storage.IsLockedByOther(b, handle) {
		s.send(c, wire.Error(wire.ErrFileAlreadyLocked))
		return Idle, nil
	}
	if wantLock && exists && s.storage.IsLocked(b) {
		// Locked by the caller itself: still rejected, spec §4.F's
		// open(O_LOCK) transition only succeeds from unlocked.
		s.send(c, wire.Error(wire.ErrFileAlreadyLocked))
		return Idle, nil
	}

	var effects []SideEffect

	if !exists {
		if ev, err := s.storage.EvictOneForCreate(); err == nil && ev != nil {
			effects = append(effects, s.failWaiters(ev.Waiters)...)
		}

		b, _ = s.storage.Create(pkt.Name)
	}

	s.storage.AddOpener(b, handle)
	if wantLock {
		s.storage.AcquireLock(b, handle)
	}
	s.storage.Touch(b)

	s.send(c, wire.Comp())
	return Idle, effects
}

// handleRead implements READ_FILE (spec §4.G row 2): a read-locked
// operation, so it may run concurrently with other reads.
func (s *Server) handleRead(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if s.storage.IsLockedByOther(b, handle) {
		s.send(c, wire.Error(wire.ErrFileIsLockedByAnotherClient))
		return Idle, nil
	}

	s.storage.Touch(b)
	s.send(c, wire.Data(b.Bytes))
	return Idle, nil
}

// handleReadN implements READ_N_FILES (spec §4.G row 3): streams the first
// min(count, num_blobs) blobs in insertion order as FILE_P, terminated by
// COMP, all under a single read-lock snapshot. count == 0 or any value
// convertible to -1 (i.e. count as a signed int64 is <= 0, including the
// all-ones u64 sentinel 0xFFFFFFFFFFFFFFFF) means "all".
func (s *Server) handleReadN(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	snapshot := s.storage.Snapshot()

	n := len(snapshot)
	if signed := int64(pkt.Count); signed > 0 && int(signed) < n {
		n = int(signed)
	}

	for i := 0; i < n; i++ {
		if !s.send(c, wire.FileP(snapshot[i].Name, snapshot[i].Bytes)) {
			return Idle, nil
		}
	}

	s.send(c, wire.Comp())
	return Idle, nil
}

// handleWrite implements WRITE_FILE (spec §4.G row 4): first write after
// creation only (size must be zero), requires the caller to hold the lock,
// and may evict other blobs to make room, streaming each eviction to the
// caller before the final COMP.
func (s *Server) handleWrite(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if b.Size() != 0 {
		s.send(c, wire.Error(wire.ErrFileWasAlreadyWritten))
		return Idle, nil
	}
	if b.LockedBy != handle {
		s.send(c, wire.Error(wire.ErrFileIsNotLocked))
		return Idle, nil
	}
	if int64(len(pkt.Data)) > s.storage.MaxBytes() {
		s.send(c, wire.Error(wire.ErrFileIsTooBig))
		return Idle, nil
	}

	evicted, err := s.storage.EvictUntilFits(int64(len(pkt.Data)), 0, b)
	ok, effects := s.sendEvicted(c, evicted)
	if err != nil {
		if ok {
			s.send(c, wire.Error(wire.ErrFileIsTooBig))
		}
		return Idle, effects
	}

	s.storage.SetBytes(b, pkt.Data)
	s.storage.Touch(b)

	if ok {
		s.send(c, wire.Comp())
	}
	return Idle, effects
}

// handleAppend implements APPEND_FILE (spec §4.G row 5): the same eviction
// path as WRITE_FILE (the target blob is never itself an eviction
// candidate), but the caller need not hold the lock (only an *other*
// client's lock blocks it, unlike WRITE_FILE's stricter "held by me"
// requirement).
func (s *Server) handleAppend(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if s.storage.IsLockedByOther(b, handle) {
		s.send(c, wire.Error(wire.ErrFileIsLockedByAnotherClient))
		return Idle, nil
	}
	if b.Size()+int64(len(pkt.Data)) > s.storage.MaxBytes() {
		s.send(c, wire.Error(wire.ErrFileIsTooBig))
		return Idle, nil
	}

	evicted, err := s.storage.EvictUntilFits(int64(len(pkt.Data)), b.Size(), b)
	ok, effects := s.sendEvicted(c, evicted)
	if err != nil {
		if ok {
			s.send(c, wire.Error(wire.ErrFileIsTooBig))
		}
		return Idle, effects
	}

	s.storage.AppendBytes(b, pkt.Data)
	s.storage.Touch(b)

	if ok {
		s.send(c, wire.Comp())
	}
	return Idle, effects
}

// handleLock implements LOCK_FILE (spec §4.G row 6 / §4.F lock(blob)
// transitions). Acquiring immediately replies COMP; enqueueing behind
// another holder sends no reply at all — the caller is parked until the
// current holder unlocks, the blob is destroyed, or it disconnects.
func (s *Server) handleLock(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if b.LockedBy == handle {
		s.send(c, wire.Error(wire.ErrFileAlreadyLocked))
		return Idle, nil
	}

	if !s.storage.IsLocked(b) {
		s.storage.AcquireLock(b, handle)
		s.send(c, wire.Comp())
		return Idle, nil
	}

	s.storage.EnqueueWaiter(b, handle)
	return Parked, nil
}

// handleUnlock implements UNLOCK_FILE (spec §4.G row 7 / §4.F unlock(blob)
// transitions): always replies COMP to the caller, plus a deferred COMP to
// the new holder if the wait queue was non-empty.
func (s *Server) handleUnlock(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if b.LockedBy != handle {
		s.send(c, wire.Error(wire.ErrFileIsNotLocked))
		return Idle, nil
	}

	next, promoted := s.storage.ReleaseLock(b)
	s.send(c, wire.Comp())

	var effects []SideEffect
	if promoted {
		effects = s.deliverPromotions([]storage.Promotion{{Blob: b, Client: next}})
	}
	return Idle, effects
}

// handleClose implements CLOSE_FILE (spec §4.G row 8): removes the caller
// from the open set, and if it also held the lock, performs the same
// transition as an explicit unlock.
func (s *Server) handleClose(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if !s.storage.IsOpenedBy(b, handle) {
		s.send(c, wire.Error(wire.ErrFileIsNotOpened))
		return Idle, nil
	}

	s.storage.RemoveOpener(b, handle)

	var effects []SideEffect
	if b.LockedBy == handle {
		next, promoted := s.storage.ReleaseLock(b)
		if promoted {
			effects = s.deliverPromotions([]storage.Promotion{{Blob: b, Client: next}})
		}
	}

	s.send(c, wire.Comp())
	return Idle, effects
}

// handleRemove implements REMOVE_FILE (spec §4.G row 9): destroys the blob
// outright and fails every lock waiter it had queued.
func (s *Server) handleRemove(handle storage.ClientHandle, c *connreg.Conn, pkt *wire.Packet) (Outcome, []SideEffect) {
	s.lock.Lock()
	defer s.lock.Unlock()

	b, err := s.storage.Find(pkt.Name)
	if err != nil {
		s.send(c, wire.Error(wire.ErrFileDoesNotExist))
		return Idle, nil
	}
	if s.storage.IsLockedByOther(b, handle) {
		s.send(c, wire.Error(wire.ErrFileIsLockedByAnotherClient))
		return Idle, nil
	}
	if !s.storage.IsOpenedBy(b, handle) {
		s.send(c, wire.Error(wire.ErrFileIsNotOpened))
		return Idle, nil
	}

	waiters := s.storage.Remove(b)
	effects := s.failWaiters(waiters)

	s.send(c, wire.Comp())
	return Idle, effects
}
