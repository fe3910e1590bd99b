package scanner

import "sync/atomic"

// Stats holds call counters for a client. All counters only grow until Reset.
type Stats struct {
	requests      atomic.Uint64
	successes     atomic.Uint64
	failures      atomic.Uint64
	cacheHits     atomic.Uint64
	rateLimitHits atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters
type StatsSnapshot struct {
	Requests      uint64  `json:"totalRequests"`
	Successes     uint64  `json:"successfulRequests"`
	Failures      uint64  `json:"failedRequests"`
	CacheHits     uint64  `json:"cacheHits"`
	RateLimitHits uint64  `json:"rateLimitHits"`
	CacheSize     int     `json:"cacheSize"`
	SuccessRate   float64 `json:"successRate"` // percent of network requests
}

// Snapshot copies the counters
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Requests:      s.requests.Load(),
		Successes:     s.successes.Load(),
		Failures:      s.failures.Load(),
		CacheHits:     s.cacheHits.Load(),
		RateLimitHits: s.rateLimitHits.Load(),
	}
	if snap.Requests > 0 {
		snap.SuccessRate = float64(snap.Successes) / float64(snap.Requests) * 100
	}
	return snap
}

// Reset zeroes all counters
func (s *Stats) Reset() {
	s.requests.Store(0)
	s.successes.Store(0)
	s.failures.Store(0)
	s.cacheHits.Store(0)
	s.rateLimitHits.Store(0)
}
