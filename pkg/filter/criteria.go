package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"aisview/pkg/model"
)

// ErrInvalidCriteria is returned for filter values that cannot be interpreted.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// Filter keys understood by Criteria.
const (
	KeySourceCountry = "sourceCountry"
	KeySourceRegion  = "sourceRegion"
	KeySourceBS      = "sourceBs"
	KeySourceType    = "sourceType"
	KeySourceSystem  = "sourceSystem"
	KeyVesselClass   = "vesselClass"
	KeyCountry       = "country"
	KeyStaticReport  = "staticReport"
)

// Criteria holds client filter values keyed by filter name. Unknown keys are
// ignored and absent keys do not filter.
type Criteria map[string][]string

// Add appends values, splitting comma separated lists and dropping blanks.
func (c Criteria) Add(key string, raw ...string) {
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				c[key] = append(c[key], v)
			}
		}
	}
}

// Sources builds the conjunction of all source predicates present.
func (c Criteria) Sources() (Predicate[model.Source], error) {
	var preds []Predicate[model.Source]

	if v, ok := c[KeySourceCountry]; ok {
		preds = append(preds, SourceCountry(v...))
	}
	if v, ok := c[KeySourceRegion]; ok {
		preds = append(preds, SourceRegion(v...))
	}
	if v, ok := c[KeySourceBS]; ok {
		ids := make([]int, 0, len(v))
		for _, s := range v {
			id, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidCriteria, KeySourceBS, s)
			}
			ids = append(ids, id)
		}
		preds = append(preds, SourceBaseStation(ids...))
	}
	if v, ok := c[KeySourceType]; ok && len(v) > 0 {
		typ := model.SourceType(strings.ToUpper(v[0]))
		if typ != model.SourceLive && typ != model.SourceSat {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidCriteria, KeySourceType, v[0])
		}
		preds = append(preds, SourceOfType(typ))
	}
	if v, ok := c[KeySourceSystem]; ok {
		preds = append(preds, SourceSystem(v...))
	}

	return All(preds...), nil
}

// Vessels builds the conjunction of the vessel attribute predicates present.
func (c Criteria) Vessels() (Predicate[*model.Target], error) {
	var preds []Predicate[*model.Target]

	if v, ok := c[KeyVesselClass]; ok {
		classes := make([]model.VesselClass, 0, len(v))
		for _, s := range v {
			classes = append(classes, model.VesselClass(strings.ToUpper(s)))
		}
		preds = append(preds, VesselClass(classes...))
	}
	if v, ok := c[KeyCountry]; ok {
		preds = append(preds, FlagCountry(v...))
	}
	if v, ok := c[KeyStaticReport]; ok {
		for _, s := range v {
			switch strings.ToLower(s) {
			case "yes":
				preds = append(preds, StaticReport(true))
			case "no":
				preds = append(preds, StaticReport(false))
			default:
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidCriteria, KeyStaticReport, s)
			}
		}
	}

	return All(preds...), nil
}
