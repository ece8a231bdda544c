package storage

// Stats tracks the monotonic counters required by spec §3 invariant 6 and
// §6 ("Statistics output on shutdown"): peak_bytes, peak_blobs and
// eviction_count never decrease.
type Stats struct {
	peakBytes     int64
	peakBlobs     int64
	evictionCount int64
}

func (s *Stats) record(numBlobs, totalBytes int64) {
	if numBlobs > s.peakBlobs {
		s.peakBlobs = numBlobs
	}
	if totalBytes > s.peakBytes {
		s.peakBytes = totalBytes
	}
}

func (s *Stats) eventEviction() {
	s.evictionCount++
}

// StatsSnapshot is an immutable read of Stats at a point in time.
type StatsSnapshot struct {
	PeakBytes     int64
	PeakBlobs     int64
	EvictionCount int64
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		PeakBytes:     s.peakBytes,
		PeakBlobs:     s.peakBlobs,
		EvictionCount: s.evictionCount,
	}
}
