package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per component.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*Stats
}

// Stats holds metrics for a specific component.
// Fields are accessed atomically.
type Stats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Refreshes   int64 `json:"refreshes"`
	Queries     int64 `json:"queries"`
	Partials    int64 `json:"partials"`
	Failures    int64 `json:"failures"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*Stats),
	}
}

// getStats returns the stats object for a component, creating it if needed.
func (t *Tracker) getStats(component string) *Stats {
	t.mu.RLock()
	s, ok := t.stats[component]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[component]; ok {
		return s
	}
	s = &Stats{}
	t.stats[component] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(component string) {
	atomic.AddInt64(&t.getStats(component).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(component string) {
	atomic.AddInt64(&t.getStats(component).CacheMisses, 1)
}

// TrackRefresh counts an incremental fetch of a stale cache entry.
func (t *Tracker) TrackRefresh(component string) {
	atomic.AddInt64(&t.getStats(component).Refreshes, 1)
}

// TrackQuery counts a query issued against a backing store.
func (t *Tracker) TrackQuery(component string) {
	atomic.AddInt64(&t.getStats(component).Queries, 1)
}

// TrackPartial counts a result that was cut short and not committed.
func (t *Tracker) TrackPartial(component string) {
	atomic.AddInt64(&t.getStats(component).Partials, 1)
}

func (t *Tracker) TrackFailure(component string) {
	atomic.AddInt64(&t.getStats(component).Failures, 1)
}

// Reset zeroes every counter but keeps known components listed.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &Stats{}
	}
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]Stats)
	for k, v := range t.stats {
		result[k] = Stats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			Refreshes:   atomic.LoadInt64(&v.Refreshes),
			Queries:     atomic.LoadInt64(&v.Queries),
			Partials:    atomic.LoadInt64(&v.Partials),
			Failures:    atomic.LoadInt64(&v.Failures),
		}
	}
	return result
}
