// Package pasttrack reconstructs recent vessel histories from the message
// archive and keeps them cached per vessel.
//
// A cached track is served as-is while its newest sample is within the
// freshness threshold of the requested time. A stale track is extended by
// querying only the interval since its newest sample and merging the result.
// At most one archive query per vessel runs at a time; concurrent callers for
// the same vessel share it.
package pasttrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"aisview/pkg/logging"
	"aisview/pkg/model"
	"aisview/pkg/store"
	"aisview/pkg/track"
	"aisview/pkg/tracker"
	"aisview/pkg/vessel"
)

const component = "pasttrack"

// DefaultFreshness is the gap below which a cached track is served unchanged.
const DefaultFreshness = 2 * time.Minute

// DefaultCacheSize is the number of vessels kept when no size is configured.
const DefaultCacheSize = 10000

// ErrInvalidRequest is returned for a non-positive vessel id or window.
var ErrInvalidRequest = errors.New("invalid past track request")

// Result is a reconstructed track. Partial is set when the archive scan was
// cut short; such a track is valid but was not cached.
type Result struct {
	Track   track.Snapshot `json:"track"`
	Partial bool           `json:"partial,omitempty"`
}

// Config tunes a Reconstructor.
type Config struct {
	Freshness time.Duration
	CacheSize int
}

type entry struct {
	track  track.Snapshot
	newest time.Time
}

// Reconstructor serves past tracks backed by an ArchivalStore.
type Reconstructor struct {
	archive   store.ArchivalStore
	cache     *lru.Cache
	flights   singleflight.Group
	freshness time.Duration
	tracker   *tracker.Tracker
}

// New creates a Reconstructor. A nil tracker disables usage counting.
func New(archive store.ArchivalStore, cfg Config, tr *tracker.Tracker) (*Reconstructor, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create track cache: %w", err)
	}
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	if tr == nil {
		tr = tracker.New()
	}
	return &Reconstructor{
		archive:   archive,
		cache:     c,
		freshness: freshness,
		tracker:   tr,
	}, nil
}

// PastTrack returns the track of mmsi within [now-timeBack, now], keeping
// samples at least minDist meters apart.
//
// now is normally the vessel's latest known position time. Archive failures
// and cancellation degrade to a Partial result; the returned error is only
// set for invalid arguments.
func (r *Reconstructor) PastTrack(ctx context.Context, mmsi int, now time.Time, timeBack time.Duration, minDist float64) (Result, error) {
	if mmsi <= 0 || timeBack <= 0 || minDist < 0 {
		return Result{}, fmt.Errorf("%w: mmsi=%d timeBack=%s minDist=%g", ErrInvalidRequest, mmsi, timeBack, minDist)
	}
	from := now.Add(-timeBack)

	if e, ok := r.lookup(mmsi); ok && r.fresh(e, now) {
		r.tracker.TrackCacheHit(component)
		return Result{Track: e.track.Since(from)}, nil
	}

	// The fetch runs under the context of the request that started it.
	// Requests joining the flight share its result, partial or not.
	v, _, _ := r.flights.Do(strconv.Itoa(mmsi), func() (any, error) {
		return r.load(ctx, mmsi, now, timeBack, minDist), nil
	})
	out := v.(Result)
	out.Track = out.Track.Since(from)
	return out, nil
}

// Invalidate drops the cached track of mmsi.
func (r *Reconstructor) Invalidate(mmsi int) {
	r.cache.Remove(mmsi)
}

// Len returns the number of cached vessels.
func (r *Reconstructor) Len() int {
	return r.cache.Len()
}

func (r *Reconstructor) lookup(mmsi int) (entry, bool) {
	v, ok := r.cache.Get(mmsi)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (r *Reconstructor) fresh(e entry, now time.Time) bool {
	return now.Sub(e.newest) <= r.freshness
}

// load runs inside the single flight for mmsi.
func (r *Reconstructor) load(ctx context.Context, mmsi int, now time.Time, timeBack time.Duration, minDist float64) Result {
	cached, ok := r.lookup(mmsi)
	if ok && r.fresh(cached, now) {
		// Committed by the flight we queued behind.
		r.tracker.TrackCacheHit(component)
		return Result{Track: cached.track}
	}

	from := now.Add(-timeBack)
	if ok {
		r.tracker.TrackRefresh(component)
		from = cached.newest
	} else {
		r.tracker.TrackCacheMiss(component)
	}

	fetched, err := r.fetch(ctx, mmsi, from, now, minDist)
	merged := track.Merge(cached.track, fetched)
	if err != nil {
		r.tracker.TrackPartial(component)
		if ctx.Err() == nil {
			r.tracker.TrackFailure(component)
			slog.Warn("Past track query failed", "mmsi", mmsi, "from", from, "to", now, "error", err)
		} else {
			slog.Debug("Past track query cancelled", "mmsi", mmsi, "kept", fetched.Len())
		}
		return Result{Track: merged, Partial: true}
	}

	newest := now
	if p, ok := merged.Newest(); ok {
		newest = p.Time
	}
	if ok && newest.Before(cached.newest) {
		newest = cached.newest
	}
	r.cache.Add(mmsi, entry{track: merged, newest: newest})

	slog.Debug("Past track cached", "mmsi", mmsi, "points", merged.Len(), "fetched", fetched.Len(), "refresh", ok)
	return Result{Track: merged}
}

// fetch replays the archived messages of one vessel in [from, to] and returns
// the sampled positions. On error the samples gathered so far are returned.
func (r *Reconstructor) fetch(ctx context.Context, mmsi int, from, to time.Time, minDist float64) (track.Snapshot, error) {
	r.tracker.TrackQuery(component)

	cur, err := r.archive.Query(ctx, mmsi, from, to)
	if err != nil {
		return track.Snapshot{}, err
	}
	defer cur.Close()

	var (
		state   vessel.State
		set     track.Set
		skipped int
	)
	for cur.Next() {
		if err := ctx.Err(); err != nil {
			return set.Snapshot(), err
		}
		m, err := model.Decode(cur.Message())
		if err != nil {
			skipped++
			logging.TraceVessel(mmsi, "Skipping archived message", "error", err)
			continue
		}
		if err := state.Apply(&m); err != nil {
			skipped++
			logging.TraceVessel(mmsi, "Skipping inapplicable message", "type", m.Type, "error", err)
			continue
		}
		if !m.IsPosition() {
			continue
		}
		if p, ok := state.TrackPoint(); ok {
			set.AddSampled(p, minDist)
		}
	}
	if err := cur.Err(); err != nil {
		return set.Snapshot(), err
	}
	if err := ctx.Err(); err != nil {
		return set.Snapshot(), err
	}
	if skipped > 0 {
		slog.Debug("Skipped archived messages", "mmsi", mmsi, "count", skipped)
	}
	return set.Snapshot(), nil
}
