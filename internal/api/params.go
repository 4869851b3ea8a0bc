package api

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"aisview/pkg/filter"
	"aisview/pkg/geo"
)

var errBadParam = errors.New("bad request parameter")

// criteriaKeys are the query parameters forwarded to filter.Criteria.
var criteriaKeys = []string{
	filter.KeySourceCountry,
	filter.KeySourceRegion,
	filter.KeySourceBS,
	filter.KeySourceType,
	filter.KeySourceSystem,
	filter.KeyVesselClass,
	filter.KeyCountry,
	filter.KeyStaticReport,
}

func parseCriteria(q url.Values) filter.Criteria {
	c := filter.Criteria{}
	for _, k := range criteriaKeys {
		if v, ok := q[k]; ok {
			c.Add(k, v...)
		}
	}
	return c
}

func intParam(q url.Values, key string, def int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, key, s)
	}
	return v, nil
}

func floatParam(q url.Values, key string, def float64) (float64, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, key, s)
	}
	return v, nil
}

// pointParam reads an optional position. Both coordinates must be given
// together.
func pointParam(q url.Values, latKey, lonKey string) (*geo.Point, error) {
	if q.Get(latKey) == "" && q.Get(lonKey) == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(q.Get(latKey), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", errBadParam, latKey, q.Get(latKey))
	}
	lon, err := strconv.ParseFloat(q.Get(lonKey), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", errBadParam, lonKey, q.Get(lonKey))
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}

// boxParam reads the topLat/topLon (A) and botLat/botLon (B) corners.
func boxParam(q url.Values) (filter.Box, error) {
	a, err := pointParam(q, "topLat", "topLon")
	if err != nil {
		return filter.Box{}, err
	}
	b, err := pointParam(q, "botLat", "botLon")
	if err != nil {
		return filter.Box{}, err
	}
	return filter.NewBox(a, b)
}
