package application

import (
	"sync"
	"time"

	"github.com/meetscribe/scribe-go/domain/call"
)

// TypeStats aggregates outcomes for one call type.
type TypeStats struct {
	// Total is the number of dispatched calls of this type.
	Total int64
	// Successful is the number that completed successfully.
	Successful int64
	// Failed is the number that failed.
	Failed int64
	// AvgLatency is the average latency of successful calls only.
	AvgLatency time.Duration
	// ErrorRate is Failed / Total.
	ErrorRate float64
}

// Stats is a point-in-time snapshot of the coordinator's counters.
type Stats struct {
	// TotalCalls counts every dispatched call.
	TotalCalls int64
	// SuccessfulCalls counts successful dispatches.
	SuccessfulCalls int64
	// FailedCalls counts failed dispatches.
	FailedCalls int64
	// CachedResponses counts calls served from the response cache.
	CachedResponses int64
	// PerType breaks the counters down by call type.
	PerType map[call.Type]TypeStats
}

// statistics is the mutable store behind Stats.
type statistics struct {
	mu sync.Mutex

	cached  int64
	perType map[call.Type]*typeCounters
}

type typeCounters struct {
	total        int64
	successful   int64
	failed       int64
	totalLatency time.Duration
}

func newStatistics() *statistics {
	return &statistics{perType: make(map[call.Type]*typeCounters)}
}

func (s *statistics) counters(t call.Type) *typeCounters {
	tc, ok := s.perType[t]
	if !ok {
		tc = &typeCounters{}
		s.perType[t] = tc
	}
	return tc
}

// recordSuccess counts a successful dispatch. Latency feeds the average
// for successful calls only.
func (s *statistics) recordSuccess(t call.Type, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc := s.counters(t)
	tc.total++
	tc.successful++
	tc.totalLatency += latency
}

// recordFailure counts a failed dispatch.
func (s *statistics) recordFailure(t call.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc := s.counters(t)
	tc.total++
	tc.failed++
}

// recordCached counts a response served from cache. Cached responses do
// not count as dispatches.
func (s *statistics) recordCached() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached++
}

// snapshot builds an immutable view.
func (s *statistics) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Stats{
		CachedResponses: s.cached,
		PerType:         make(map[call.Type]TypeStats, len(s.perType)),
	}
	for t, tc := range s.perType {
		ts := TypeStats{
			Total:      tc.total,
			Successful: tc.successful,
			Failed:     tc.failed,
		}
		if tc.successful > 0 {
			ts.AvgLatency = tc.totalLatency / time.Duration(tc.successful)
		}
		if tc.total > 0 {
			ts.ErrorRate = float64(tc.failed) / float64(tc.total)
		}
		out.PerType[t] = ts
		out.TotalCalls += tc.total
		out.SuccessfulCalls += tc.successful
		out.FailedCalls += tc.failed
	}
	return out
}
