// Package metrics is a best-effort, in-process store of performance
// samples. A dropped or missing sample never affects scan correctness.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Sample is one recorded measurement. Samples expire and are pruned on the
// same cadence as the caches.
type Sample struct {
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`

	expiresAt time.Time
}

// Store holds named series of TTL-bounded samples.
type Store struct {
	mu         sync.RWMutex
	series     map[string][]Sample
	defaultTTL time.Duration
}

var now = time.Now

// NewStore builds a Store whose samples expire after defaultTTL unless a
// per-sample TTL is given.
func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		series:     make(map[string][]Sample),
		defaultTTL: defaultTTL,
	}
}

// Record appends a sample. Fire-and-forget: it never fails.
func (s *Store) Record(name string, value float64, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	at := now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[name] = append(s.series[name], Sample{
		Name:       name,
		Value:      value,
		RecordedAt: at,
		expiresAt:  at.Add(ttl),
	})
}

// Timing records a duration sample in milliseconds.
func (s *Store) Timing(name string, d time.Duration) {
	s.Record(name, float64(d.Milliseconds()), 0)
}

// Window returns the unexpired samples of a series recorded at or after
// since, oldest first. Aggregation happens on read, not on write.
func (s *Store) Window(name string, since time.Time) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	at := now()
	var out []Sample
	for _, sample := range s.series[name] {
		if sample.RecordedAt.Before(since) || !at.Before(sample.expiresAt) {
			continue
		}
		out = append(out, sample)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

// Average returns the windowed mean of a series and whether any samples
// were present.
func (s *Store) Average(name string, since time.Time) (float64, bool) {
	window := s.Window(name, since)
	if len(window) == 0 {
		return 0, false
	}
	var sum float64
	for _, sample := range window {
		sum += sample.Value
	}
	return sum / float64(len(window)), true
}

// Names lists the series currently holding any samples, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prune drops expired samples in one pass and returns how many were
// removed. Series left empty disappear entirely.
func (s *Store) Prune(at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for name, samples := range s.series {
		kept := samples[:0]
		for _, sample := range samples {
			if at.Before(sample.expiresAt) {
				kept = append(kept, sample)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.series, name)
		} else {
			s.series[name] = kept
		}
	}
	return removed
}
