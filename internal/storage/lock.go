package storage

// This file implements the mutation primitives behind the per-blob
// open/lock state machines of spec §4.F. It deliberately does not decide
// wire-level outcomes (ERROR codes, deferred replies) — that orchestration
// belongs to internal/handler, which holds the storage write lock for the
// whole opcode and knows how to translate these transitions into packets.

// AddOpener adds c to b's open set.
func (s *Storage) AddOpener(b *Blob, c ClientHandle) {
	b.OpenedBy[c] = struct{}{}
}

// RemoveOpener removes c from b's open set.
func (s *Storage) RemoveOpener(b *Blob, c ClientHandle) {
	delete(b.OpenedBy, c)
}

// IsOpenedBy reports whether c has b open.
func (s *Storage) IsOpenedBy(b *Blob, c ClientHandle) bool {
	return b.isOpenedBy(c)
}

// IsLocked reports whether b is currently held by any client.
func (s *Storage) IsLocked(b *Blob) bool {
	return b.LockedBy != NoClient
}

// IsLockedByOther reports whether b is locked by some client other than c.
func (s *Storage) IsLockedByOther(b *Blob, c ClientHandle) bool {
	return b.LockedBy != NoClient && b.LockedBy != c
}

// AcquireLock unconditionally grants b's lock to c. Callers must first
// check IsLocked.
func (s *Storage) AcquireLock(b *Blob, c ClientHandle) {
	b.LockedBy = c
}

// EnqueueWaiter appends c to b's FIFO lock wait queue (invariant 3: c must
// not already be locked_by or already queued; handler enforces this via the
// LOCK_FILE precondition table before calling).
func (s *Storage) EnqueueWaiter(b *Blob, c ClientHandle) {
	b.enqueueWaiter(c)
}

// RemoveWaiter silently drops c from b's wait queue if present (client
// disconnect path).
func (s *Storage) RemoveWaiter(b *Blob, c ClientHandle) {
	b.removeWaiter(c)
}

// ReleaseLock implements the UNLOCK_FILE transition (spec §4.F): if b's
// wait queue is non-empty, the head becomes the new holder and is returned
// so the caller can synthesize its deferred COMP reply; otherwise b becomes
// unlocked and ok is false.
func (s *Storage) ReleaseLock(b *Blob) (next ClientHandle, ok bool) {
	next, ok = b.popWaiter()
	if ok {
		b.LockedBy = next
		return next, true
	}
	b.LockedBy = NoClient
	return NoClient, false
}

// ClientCleanup implements the disconnect/removal path (spec §4.G step 2,
// §4.F "Client disconnect"): for every blob, if c held its lock, release it
// exactly like an explicit unlock (returning any newly-promoted holder);
// if c was only queued, it is dropped silently; c is also removed from
// every open set. Disconnection must scan every blob, since a single
// client handle may appear in many blobs' state (spec §5).
func (s *Storage) ClientCleanup(c ClientHandle) []Promotion {
	var promotions []Promotion

	for _, b := range s.blobs {
		delete(b.OpenedBy, c)

		if b.LockedBy == c {
			if next, ok := s.ReleaseLock(b); ok {
				promotions = append(promotions, Promotion{Blob: b, Client: next})
			}
			continue
		}

		b.removeWaiter(c)
	}

	return promotions
}

// Promotion describes a waiter that was promoted to lock holder as a side
// effect of another client's unlock or disconnect, and therefore owes it a
// deferred COMP reply.
type Promotion struct {
	Blob   *Blob
	Client ClientHandle
}
