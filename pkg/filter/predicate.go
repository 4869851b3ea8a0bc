// Package filter composes the predicates used to narrow the live target
// population before clustering or listing.
package filter

// Predicate reports whether a value passes a filter. Predicates are pure and
// safe to evaluate concurrently.
type Predicate[T any] func(T) bool

// True returns a predicate accepting everything.
func True[T any]() Predicate[T] {
	return func(T) bool { return true }
}

// And returns p AND q, short-circuiting on p.
func (p Predicate[T]) And(q Predicate[T]) Predicate[T] {
	return All(p, q)
}

// Or returns p OR q, short-circuiting on p.
func (p Predicate[T]) Or(q Predicate[T]) Predicate[T] {
	return Any(p, q)
}

// Not negates p.
func (p Predicate[T]) Not() Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// All is the conjunction of preds. Nil entries are ignored and an empty list
// accepts everything.
func All[T any](preds ...Predicate[T]) Predicate[T] {
	active := compact(preds)
	if len(active) == 0 {
		return True[T]()
	}
	return func(v T) bool {
		for _, p := range active {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Any is the disjunction of preds. An empty list rejects everything.
func Any[T any](preds ...Predicate[T]) Predicate[T] {
	active := compact(preds)
	return func(v T) bool {
		for _, p := range active {
			if p(v) {
				return true
			}
		}
		return false
	}
}

func compact[T any](preds []Predicate[T]) []Predicate[T] {
	out := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func set[K comparable](values []K) map[K]struct{} {
	m := make(map[K]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}
