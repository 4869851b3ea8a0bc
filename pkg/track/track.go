// Package track holds time-ordered, duplicate-free vessel position histories.
//
// Set is the mutable form used while a track is being built. Snapshot is the
// read-only form handed to caches and callers; it has no mutating methods.
package track

import (
	"encoding/json"
	"iter"
	"sort"
	"time"

	"aisview/pkg/geo"
)

// Point is one position sample of a vessel.
type Point struct {
	geo.Point
	Time    time.Time `json:"time"`
	SOG     float64   `json:"sog"`
	COG     float64   `json:"cog"`
	Heading int       `json:"heading"`
}

// Equal reports whether two samples share timestamp and position.
func (p Point) Equal(o Point) bool {
	return p.Time.Equal(o.Time) && p.Lat == o.Lat && p.Lon == o.Lon
}

// preferred picks one of two samples with equal timestamps, independent of
// argument order.
func preferred(a, b Point) Point {
	switch {
	case a.Lat != b.Lat:
		if a.Lat < b.Lat {
			return a
		}
		return b
	case a.Lon != b.Lon:
		if a.Lon < b.Lon {
			return a
		}
		return b
	case a.SOG != b.SOG:
		if a.SOG < b.SOG {
			return a
		}
		return b
	case a.COG != b.COG:
		if a.COG < b.COG {
			return a
		}
		return b
	case a.Heading < b.Heading:
		return a
	}
	return b
}

// Set is a mutable track under construction. The zero value is ready to use.
// A Set is not safe for concurrent use.
type Set struct {
	points []Point
}

// Len returns the number of samples.
func (s *Set) Len() int {
	return len(s.points)
}

// Add inserts p in timestamp order. A sample sharing a timestamp with an
// existing one collapses into a single sample.
func (s *Set) Add(p Point) {
	n := len(s.points)
	if n == 0 || s.points[n-1].Time.Before(p.Time) {
		s.points = append(s.points, p)
		return
	}
	i := sort.Search(n, func(i int) bool { return !s.points[i].Time.Before(p.Time) })
	if i < n && s.points[i].Time.Equal(p.Time) {
		s.points[i] = preferred(s.points[i], p)
		return
	}
	s.points = append(s.points, Point{})
	copy(s.points[i+1:], s.points[i:])
	s.points[i] = p
}

// AddSampled adds p unless it lies within minDist meters of the newest sample.
// It reports whether p was kept.
func (s *Set) AddSampled(p Point, minDist float64) bool {
	if n := len(s.points); n > 0 && minDist > 0 {
		last := s.points[n-1]
		if !p.Time.Before(last.Time) && geo.Distance(last.Point, p.Point) < minDist {
			return false
		}
	}
	s.Add(p)
	return true
}

// Snapshot freezes the current contents. Later changes to s are not visible
// in the snapshot.
func (s *Set) Snapshot() Snapshot {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return Snapshot{points: out}
}

// Snapshot is an immutable, ascending, duplicate-free track.
type Snapshot struct {
	points []Point
}

// Len returns the number of samples.
func (s Snapshot) Len() int {
	return len(s.points)
}

// At returns the i-th oldest sample.
func (s Snapshot) At(i int) Point {
	return s.points[i]
}

// Newest returns the most recent sample.
func (s Snapshot) Newest() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Oldest returns the earliest sample.
func (s Snapshot) Oldest() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[0], true
}

// All iterates the samples in ascending time order.
func (s Snapshot) All() iter.Seq2[int, Point] {
	return func(yield func(int, Point) bool) {
		for i, p := range s.points {
			if !yield(i, p) {
				return
			}
		}
	}
}

// Points returns a copy of the samples.
func (s Snapshot) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Since returns the samples at or after t.
func (s Snapshot) Since(t time.Time) Snapshot {
	i := sort.Search(len(s.points), func(i int) bool { return !s.points[i].Time.Before(t) })
	return Snapshot{points: s.points[i:len(s.points):len(s.points)]}
}

// MarshalJSON encodes the snapshot as an array of samples.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.points)
}

// Merge returns the ordered union of a and b. Samples sharing a timestamp
// collapse into one. Merge is commutative, associative and idempotent.
func Merge(a, b Snapshot) Snapshot {
	out := make([]Point, 0, len(a.points)+len(b.points))
	i, j := 0, 0
	for i < len(a.points) && j < len(b.points) {
		pa, pb := a.points[i], b.points[j]
		switch {
		case pa.Time.Before(pb.Time):
			out = append(out, pa)
			i++
		case pb.Time.Before(pa.Time):
			out = append(out, pb)
			j++
		default:
			out = append(out, preferred(pa, pb))
			i++
			j++
		}
	}
	out = append(out, a.points[i:]...)
	out = append(out, b.points[j:]...)
	return Snapshot{points: out}
}
