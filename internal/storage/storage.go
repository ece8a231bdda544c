// Package storage implements the blobstore storage engine (spec §3, §4.E)
// and the per-blob open/lock state machines (spec §4.F): an ordered,
// in-memory name->Blob map with capacity limits, victim selection for
// eviction, and aggregate statistics.
//
// Storage itself performs no locking: callers (internal/handler) acquire
// internal/rwlock around every call, in the mode required by the opcode
// being served (spec §4.G), so that the entire per-blob state machine
// transition is atomic at the storage level. This mirrors the original
// file_storage_internal.c boundary: storage owns the map and blob structs,
// the caller owns the concurrency discipline around it.
package storage

import (
	"container/list"
	"errors"
	"sync/atomic"
)

// ErrFileTooBig is returned by EvictUntilFits when the only eviction
// candidate is the excluded blob itself: spec §4.E requires the whole
// operation to fail rather than silently evict nothing (a deliberate
// correction of the original's "return NULL silently" behavior, spec §9).
var ErrFileTooBig = errors.New("storage: no evictable victim, file is too big")

// ErrNotFound is returned by Find/Remove-adjacent lookups for an absent
// blob name.
var ErrNotFound = errors.New("storage: blob not found")

// ErrAlreadyExists is returned by Create when the name is already present.
var ErrAlreadyExists = errors.New("storage: blob already exists")

// Evicted describes one blob evicted by EvictUntilFits, carrying what the
// handler needs to notify the requesting client and fail lock waiters.
type Evicted struct {
	Blob    *Blob
	Waiters []ClientHandle
}

// Storage is the blob storage engine.
type Storage struct {
	policy   Policy
	maxBlobs int64
	maxBytes int64

	blobs map[string]*Blob
	order *list.List // of *Blob, insertion order

	totalBytes int64
	numBlobs   int64
	nextSeq    int64
	clock      atomic.Int64 // logical clock, bumped on every successful operation; READ_FILE/READ_N_FILES touch blobs concurrently under only the read lock, so this must be safe for concurrent increment

	stats Stats
}

// New creates an empty storage engine with the given capacity limits and
// eviction policy.
func New(policy Policy, maxBlobs, maxBytes int64) *Storage {
	return &Storage{
		policy:   policy,
		maxBlobs: maxBlobs,
		maxBytes: maxBytes,
		blobs:    map[string]*Blob{},
		order:    list.New(),
	}
}

// Policy returns the configured eviction policy.
func (s *Storage) Policy() Policy { return s.policy }

// MaxBlobs returns the configured maximum blob count.
func (s *Storage) MaxBlobs() int64 { return s.maxBlobs }

// MaxBytes returns the configured maximum aggregate byte size.
func (s *Storage) MaxBytes() int64 { return s.maxBytes }

// NumBlobs returns the current blob count.
func (s *Storage) NumBlobs() int64 { return s.numBlobs }

// TotalBytes returns the current aggregate byte size.
func (s *Storage) TotalBytes() int64 { return s.totalBytes }

// Tick advances and returns the storage's logical clock, used to timestamp
// last_used_ts for LRU without depending on wall-clock resolution.
func (s *Storage) Tick() int64 {
	return s.clock.Add(1)
}

// Touch records a successful operation against b: bumps its use_count and
// last_used_ts and advances the engine's logical clock.
func (s *Storage) Touch(b *Blob) {
	b.touch(s.Tick())
}

// Find looks up name. It returns ErrNotFound if absent.
func (s *Storage) Find(name string) (*Blob, error) {
	b, ok := s.blobs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Create makes a new empty blob named name and inserts it. It returns
// ErrAlreadyExists if name is already present.
func (s *Storage) Create(name string) (*Blob, error) {
	if _, ok := s.blobs[name]; ok {
		return nil, ErrAlreadyExists
	}

	s.nextSeq++
	b := newBlob(name, s.nextSeq)
	s.insert(b)
	return b, nil
}

func (s *Storage) insert(b *Blob) {
	s.blobs[b.Name] = b
	b.elem = s.order.PushBack(b)

	s.numBlobs++
	s.totalBytes += b.Size()

	s.stats.record(s.numBlobs, s.totalBytes)
}

// Remove deletes b from the engine, if present. It is a no-op if b was
// already removed. Returns the waiters that were in b's lock queue so the
// caller can fail them.
func (s *Storage) Remove(b *Blob) []ClientHandle {
	if _, ok := s.blobs[b.Name]; !ok {
		return nil
	}

	delete(s.blobs, b.Name)
	s.order.Remove(b.elem)
	b.elem = nil

	s.numBlobs--
	s.totalBytes -= b.Size()

	return b.drainWaiters()
}

// SetBytes replaces b's payload, maintaining the totalBytes aggregate. The
// caller must have already ensured the new size fits within MaxBytes (via
// EvictUntilFits).
func (s *Storage) SetBytes(b *Blob, data []byte) {
	s.totalBytes += int64(len(data)) - b.Size()
	b.Bytes = data
	s.stats.record(s.numBlobs, s.totalBytes)
}

// AppendBytes appends data to b's payload.
func (s *Storage) AppendBytes(b *Blob, data []byte) {
	s.totalBytes += int64(len(data))
	b.Bytes = append(b.Bytes, data...)
	s.stats.record(s.numBlobs, s.totalBytes)
}

// ChooseVictim selects the blob to evict per the configured policy,
// excluding exclude (which may be nil). It returns nil if exclude is the
// only candidate blob.
func (s *Storage) ChooseVictim(exclude *Blob) *Blob {
	var best *Blob

	for e := s.order.Front(); e != nil; e = e.Next() {
		b := e.Value.(*Blob)
		if b == exclude {
			continue
		}

		switch s.policy {
		case FIFO:
			return b // first candidate in insertion order

		case LRU:
			if best == nil || b.LastUsed() < best.LastUsed() {
				best = b
			}

		case LFU:
			if best == nil || b.UseCount() < best.UseCount() {
				best = b
			}
		}
	}

	return best
}

// EvictUntilFits evicts blobs, per ChooseVictim, until bytesNeeded more
// bytes would fit under MaxBytes (spec §4.E evict_until). excludeBlob, if
// non-nil, is never evicted (the target of an in-progress WRITE/APPEND);
// the exclude argument is not used. It returns every evicted blob, in
// eviction order, along with the waiters that were queued on it (removed
// from the blob's queue but not yet notified; the caller is responsible
// for sending them ERROR FILE_DOES_NOT_EXIST and for streaming the blob
// back to the requester as FILE_P). If at any point no candidate other
// than excludeBlob remains, ErrFileTooBig is returned; blobs already
// evicted stay evicted and are returned too (the caller must still notify
// about them, then fail the whole request).
func (s *Storage) EvictUntilFits(bytesNeeded, exclude int64, excludeBlob *Blob) ([]Evicted, error) {
	var evicted []Evicted

	for s.totalBytes+bytesNeeded > s.maxBytes {
		victim := s.ChooseVictim(excludeBlob)
		if victim == nil {
			return evicted, ErrFileTooBig
		}

		waiters := s.Remove(victim)
		s.stats.eventEviction()

		evicted = append(evicted, Evicted{Blob: victim, Waiters: waiters})
	}

	return evicted, nil
}

// EvictOneForCreate evicts exactly one blob to make room for a new blob
// when NumBlobs() == MaxBlobs() (spec §4.E: "the same routine drives
// max_blobs overflow on open(O_CREATE)"). The evicted blob is deleted, not
// sent to the client (creation-overflow path never streams FILE_P, spec
// §4.G OPEN_FILE row).
func (s *Storage) EvictOneForCreate() (*Evicted, error) {
	if s.numBlobs < s.maxBlobs {
		return nil, nil
	}

	victim := s.ChooseVictim(nil)
	if victim == nil {
		return nil, ErrFileTooBig
	}

	waiters := s.Remove(victim)
	s.stats.eventEviction()

	return &Evicted{Blob: victim, Waiters: waiters}, nil
}

// Snapshot returns a stable view of insertion-order blobs, used by
// READ_N_FILES (spec: "observes storage in insertion order at a single
// snapshot"). Callers must hold the storage read lock for the duration of
// use.
func (s *Storage) Snapshot() []*Blob {
	out := make([]*Blob, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Blob))
	}
	return out
}

// StatsSnapshot returns the current statistics (spec §6 "Statistics output
// on shutdown").
func (s *Storage) StatsSnapshot() StatsSnapshot {
	return s.stats.snapshot()
}
