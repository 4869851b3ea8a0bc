package api

import (
	"net/http"
	"runtime"
	"sync"

	"aisview/pkg/tracker"
)

// sizer reports a collection size.
type sizer interface {
	Len() int
}

type StatsHandler struct {
	tracker *tracker.Tracker
	vessels sizer
	tracks  sizer
	mu      sync.Mutex
	maxMem  uint64
}

func NewStatsHandler(t *tracker.Tracker, vessels, tracks sizer) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		vessels: vessels,
		tracks:  tracks,
	}
}

type ComponentStatsDTO struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Refreshes   int64 `json:"refreshes"`
	Queries     int64 `json:"queries"`
	Partials    int64 `json:"partials"`
	Failures    int64 `json:"failures"`
	HitRate     int64 `json:"hit_rate"`
}

type DiagnosticsStats struct {
	MemoryMB    uint64 `json:"memory_mb"`
	MemoryMaxMB uint64 `json:"memory_max_mb"`
	Goroutines  int    `json:"goroutines"`
}

type TrackingStats struct {
	Vessels      int `json:"vessels"`
	CachedTracks int `json:"cached_tracks"`
}

type StatsResponse struct {
	Diagnostics DiagnosticsStats             `json:"diagnostics"`
	Tracking    TrackingStats                `json:"tracking"`
	Components  map[string]ComponentStatsDTO `json:"components"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.mu.Lock()
	if ms.Alloc > h.maxMem {
		h.maxMem = ms.Alloc
	}
	maxMem := h.maxMem
	h.mu.Unlock()

	resp := StatsResponse{
		Diagnostics: DiagnosticsStats{
			MemoryMB:    bToMb(ms.Alloc),
			MemoryMaxMB: bToMb(maxMem),
			Goroutines:  runtime.NumGoroutine(),
		},
		Components: make(map[string]ComponentStatsDTO),
	}
	if h.vessels != nil {
		resp.Tracking.Vessels = h.vessels.Len()
	}
	if h.tracks != nil {
		resp.Tracking.CachedTracks = h.tracks.Len()
	}

	for name, stats := range snapshot {
		totalCache := stats.CacheHits + stats.CacheMisses + stats.Refreshes
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Components[name] = ComponentStatsDTO{
			CacheHits:   stats.CacheHits,
			CacheMisses: stats.CacheMisses,
			Refreshes:   stats.Refreshes,
			Queries:     stats.Queries,
			Partials:    stats.Partials,
			Failures:    stats.Failures,
			HitRate:     hitRate,
		}
	}

	writeJSON(w, resp)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
