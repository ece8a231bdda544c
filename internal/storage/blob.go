package storage

import (
	"container/list"
	"sync/atomic"
)

// ClientHandle is the opaque identifier naming one connected client for the
// life of its connection (spec glossary: "the stream-socket fd in this
// design"). The storage engine never owns a connection, only this value;
// see SPEC_FULL.md §4 / spec §9 re-architecture notes.
type ClientHandle int64

// NoClient is the zero value, meaning "no client" wherever a ClientHandle
// field is optional (e.g. Blob.LockedBy when unlocked).
const NoClient ClientHandle = 0

// Blob is one in-memory file record (spec §3 Data Model).
type Blob struct {
	Name  string
	Bytes []byte

	OpenedBy map[ClientHandle]struct{}

	LockedBy      ClientHandle
	LockWaitQueue []ClientHandle

	// lastUsed and useCount are read under the storage engine's read lock
	// by READ_FILE/READ_N_FILES (which run concurrently with each other),
	// so they are updated atomically rather than relying on the read lock
	// for mutual exclusion.
	lastUsed atomic.Int64
	useCount atomic.Int64

	// insertSeq fixes this blob's position in the global insertion order,
	// used by FIFO eviction and as the tie-break for LRU/LFU.
	insertSeq int64

	// elem is this blob's node in the engine's insertion-order list,
	// letting remove() unlink it in O(1) instead of scanning.
	elem *list.Element
}

func newBlob(name string, seq int64) *Blob {
	return &Blob{
		Name:     name,
		Bytes:    []byte{},
		OpenedBy: map[ClientHandle]struct{}{},
		LockedBy: NoClient,
		insertSeq: seq,
	}
}

// Size returns len(Bytes).
func (b *Blob) Size() int64 { return int64(len(b.Bytes)) }

// LastUsed returns the logical timestamp of the blob's last successful
// operation, used for LRU victim selection.
func (b *Blob) LastUsed() int64 { return b.lastUsed.Load() }

// UseCount returns the number of successful operations against this blob,
// used for LFU victim selection.
func (b *Blob) UseCount() int64 { return b.useCount.Load() }

// touch records a successful operation: bumps use_count and last_used_ts.
// tick is a storage-wide logical clock, not wall-clock time, so ordering is
// exact and independent of timer resolution.
func (b *Blob) touch(tick int64) {
	b.lastUsed.Store(tick)
	b.useCount.Add(1)
}

// isOpenedBy reports whether c currently has this blob open.
func (b *Blob) isOpenedBy(c ClientHandle) bool {
	_, ok := b.OpenedBy[c]
	return ok
}

// enqueueWaiter appends c to the FIFO lock wait queue. Precondition
// (invariant 3): c is not already locked_by and not already queued.
func (b *Blob) enqueueWaiter(c ClientHandle) {
	b.LockWaitQueue = append(b.LockWaitQueue, c)
}

// popWaiter removes and returns the head of the FIFO lock wait queue.
func (b *Blob) popWaiter() (ClientHandle, bool) {
	if len(b.LockWaitQueue) == 0 {
		return NoClient, false
	}
	c := b.LockWaitQueue[0]
	b.LockWaitQueue = b.LockWaitQueue[1:]
	return c, true
}

// removeWaiter silently drops c from the wait queue, if present (used on
// client disconnect).
func (b *Blob) removeWaiter(c ClientHandle) {
	for i, w := range b.LockWaitQueue {
		if w == c {
			b.LockWaitQueue = append(b.LockWaitQueue[:i], b.LockWaitQueue[i+1:]...)
			return
		}
	}
}

// drainWaiters removes and returns every waiter in the queue, in FIFO
// order, for callers that must fail them all (blob removal/eviction).
func (b *Blob) drainWaiters() []ClientHandle {
	w := b.LockWaitQueue
	b.LockWaitQueue = nil
	return w
}
