// Package registry keeps the live vessel population in memory.
package registry

import (
	"sort"
	"sync"
	"time"

	"aisview/pkg/filter"
	"aisview/pkg/model"
	"aisview/pkg/vessel"
)

// DefaultRateWindow bounds how far back RateCount can look.
const DefaultRateWindow = time.Hour

// Registry holds the latest state of every vessel heard from.
// Readers get point-in-time copies; it is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	vessels map[int]*vessel.State

	rateMu     sync.Mutex
	reports    []time.Time // ascending receive times
	rateWindow time.Duration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		vessels:    make(map[int]*vessel.State),
		rateWindow: DefaultRateWindow,
	}
}

// Update applies one decoded message to its vessel. A message that does not
// apply to the known vessel is rejected with the vessel package's error.
func (r *Registry) Update(m *model.Message) error {
	r.mu.Lock()
	st, ok := r.vessels[m.MMSI]
	if !ok {
		st = &vessel.State{}
	}
	err := st.Apply(m)
	if err == nil && !ok {
		r.vessels[m.MMSI] = st
	}
	r.mu.Unlock()

	if err != nil {
		return err
	}
	if m.IsPosition() || m.IsStatic() {
		r.recordReport(m.Timestamp)
	}
	return nil
}

// Find returns copies of the targets accepted by both predicates, keyed by MMSI.
// Nil predicates accept everything.
func (r *Registry) Find(src filter.Predicate[model.Source], tgt filter.Predicate[*model.Target]) map[int]*model.Target {
	src, tgt = orTrue(src), orTrue(tgt)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]*model.Target)
	for mmsi, st := range r.vessels {
		t := st.Target()
		if src(t.Source) && tgt(t) {
			out[mmsi] = t
		}
	}
	return out
}

// Count returns how many targets both predicates accept.
func (r *Registry) Count(src filter.Predicate[model.Source], tgt filter.Predicate[*model.Target]) int {
	src, tgt = orTrue(src), orTrue(tgt)

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, st := range r.vessels {
		t := st.Target()
		if src(t.Source) && tgt(t) {
			n++
		}
	}
	return n
}

// Get returns a copy of one vessel.
func (r *Registry) Get(mmsi int) (*model.Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.vessels[mmsi]
	if !ok {
		return nil, false
	}
	return st.Target(), true
}

// Len returns the number of known vessels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vessels)
}

// Prune drops vessels not heard from within ttl of now and returns how many
// were removed.
func (r *Registry) Prune(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for mmsi, st := range r.vessels {
		if !st.Target().Alive(now, ttl) {
			delete(r.vessels, mmsi)
			n++
		}
	}
	return n
}

// RateCount returns the number of position and static reports received
// after since. Reports older than the rate window are forgotten.
func (r *Registry) RateCount(since time.Time) int {
	r.rateMu.Lock()
	defer r.rateMu.Unlock()
	i := sort.Search(len(r.reports), func(i int) bool { return r.reports[i].After(since) })
	return len(r.reports) - i
}

func (r *Registry) recordReport(ts time.Time) {
	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	n := len(r.reports)
	if n == 0 || !ts.Before(r.reports[n-1]) {
		r.reports = append(r.reports, ts)
	} else {
		i := sort.Search(n, func(i int) bool { return r.reports[i].After(ts) })
		r.reports = append(r.reports, time.Time{})
		copy(r.reports[i+1:], r.reports[i:])
		r.reports[i] = ts
	}

	cutoff := r.reports[len(r.reports)-1].Add(-r.rateWindow)
	drop := sort.Search(len(r.reports), func(i int) bool { return !r.reports[i].Before(cutoff) })
	if drop > 0 {
		r.reports = append(r.reports[:0], r.reports[drop:]...)
	}
}

func orTrue[T any](p filter.Predicate[T]) filter.Predicate[T] {
	if p == nil {
		return filter.True[T]()
	}
	return p
}
