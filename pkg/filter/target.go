package filter

import (
	"strconv"
	"strings"
	"time"

	"aisview/pkg/model"
)

// Alive accepts targets heard from within ttl of now.
func Alive(now time.Time, ttl time.Duration) Predicate[*model.Target] {
	return func(t *model.Target) bool {
		return t.Alive(now, ttl)
	}
}

// VesselClass accepts targets of the given transponder classes.
func VesselClass(classes ...model.VesselClass) Predicate[*model.Target] {
	allowed := set(classes)
	return func(t *model.Target) bool {
		_, ok := allowed[t.Class]
		return ok
	}
}

// FlagCountry accepts targets flagged in one of the ISO3 codes. Targets
// without a known flag are rejected.
func FlagCountry(codes ...string) Predicate[*model.Target] {
	allowed := set(upper(codes))
	return func(t *model.Target) bool {
		if t.Flag == "" {
			return false
		}
		_, ok := allowed[strings.ToUpper(t.Flag)]
		return ok
	}
}

// StaticReport accepts targets with (want=true) or without static data.
func StaticReport(want bool) Predicate[*model.Target] {
	return func(t *model.Target) bool {
		return t.HasStatic == want
	}
}

// Search matches a term as a prefix of the MMSI, the vessel name or any word
// of it (case-insensitive), or the IMO number of class A vessels.
func Search(term string) Predicate[*model.Target] {
	term = strings.ToUpper(strings.TrimSpace(term))
	return func(t *model.Target) bool {
		if strings.HasPrefix(strconv.Itoa(t.MMSI), term) {
			return true
		}
		if t.Name != "" {
			name := strings.ToUpper(t.Name)
			if strings.HasPrefix(name, term) {
				return true
			}
			for _, w := range strings.Fields(name) {
				if strings.HasPrefix(w, term) {
					return true
				}
			}
		}
		if t.Class == model.ClassA && t.IMO != 0 {
			return strings.HasPrefix(strconv.Itoa(t.IMO), term)
		}
		return false
	}
}

func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
