package filter

import (
	"aisview/pkg/geo"
	"aisview/pkg/model"
)

// Box is a map viewport given by its top-left (A) and bottom-right (B)
// corners. A box whose west edge is numerically east of its east edge spans
// the antimeridian.
type Box struct {
	A *geo.Point
	B *geo.Point
}

// NewBox validates both corners. Passing nil for either corner yields an unset box.
func NewBox(a, b *geo.Point) (Box, error) {
	if a == nil || b == nil {
		return Box{}, nil
	}
	if err := a.Validate(); err != nil {
		return Box{}, err
	}
	if err := b.Validate(); err != nil {
		return Box{}, err
	}
	return Box{A: a, B: b}, nil
}

// IsSet reports whether both corners are present.
func (b Box) IsSet() bool {
	return b.A != nil && b.B != nil
}

// CrossesAntimeridian reports whether the box wraps around +/-180.
func (b Box) CrossesAntimeridian() bool {
	return b.IsSet() && b.B.Lon < b.A.Lon
}

// Contains reports whether p lies inside the box; an unset box contains everything.
// Edges are inclusive, so a degenerate box only contains its own corner.
func (b Box) Contains(p geo.Point) bool {
	if !b.IsSet() {
		return true
	}

	lo, hi := b.A.Lat, b.B.Lat
	if lo > hi {
		lo, hi = hi, lo
	}
	if p.Lat < lo || p.Lat > hi {
		return false
	}

	if b.B.Lon >= b.A.Lon {
		return p.Lon >= b.A.Lon && p.Lon <= b.B.Lon
	}
	return p.Lon >= b.A.Lon || p.Lon <= b.B.Lon
}

// InBox accepts targets positioned inside the box. With a set box, targets
// without a valid position are rejected.
func InBox(b Box) Predicate[*model.Target] {
	if !b.IsSet() {
		return True[*model.Target]()
	}
	return func(t *model.Target) bool {
		p, ok := t.Position()
		return ok && b.Contains(p)
	}
}
