package filter

import (
	"strings"

	"aisview/pkg/model"
)

// SourceCountry accepts reports received in one of the ISO3 countries.
func SourceCountry(codes ...string) Predicate[model.Source] {
	allowed := set(upper(codes))
	return func(s model.Source) bool {
		_, ok := allowed[strings.ToUpper(s.Country)]
		return ok
	}
}

// SourceRegion accepts reports from one of the regions.
func SourceRegion(regions ...string) Predicate[model.Source] {
	allowed := set(regions)
	return func(s model.Source) bool {
		_, ok := allowed[s.Region]
		return ok
	}
}

// SourceBaseStation accepts reports relayed by one of the base stations.
func SourceBaseStation(ids ...int) Predicate[model.Source] {
	allowed := set(ids)
	return func(s model.Source) bool {
		_, ok := allowed[s.BaseStation]
		return ok
	}
}

// SourceOfType accepts reports of a reception type.
func SourceOfType(typ model.SourceType) Predicate[model.Source] {
	return func(s model.Source) bool {
		return strings.EqualFold(string(s.Type), string(typ))
	}
}

// SourceSystem accepts reports from one of the source systems.
func SourceSystem(ids ...string) Predicate[model.Source] {
	allowed := set(ids)
	return func(s model.Source) bool {
		_, ok := allowed[s.System]
		return ok
	}
}
