package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes the day and week units
// used for archive retention, and "min" for cache freshness.
type Duration time.Duration

// Durations that time.ParseDuration cannot express.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML writes whole weeks and days in their own unit so a saved
// retention reads "2d" rather than "48h0m0s".
func (d Duration) MarshalYAML() (interface{}, error) {
	return FormatDuration(time.Duration(d)), nil
}

// FormatDuration is the inverse of ParseDuration for the values it writes.
func FormatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return "0s"
	case d%Week == 0:
		return strconv.FormatInt(int64(d/Week), 10) + "w"
	case d%Day == 0:
		return strconv.FormatInt(int64(d/Day), 10) + "d"
	default:
		return d.String()
	}
}

// ParseDuration accepts everything time.ParseDuration does plus the units
// d (day), w (week) and min, which may be mixed: "1d12h", "2min".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return parseExtendedDuration(s)
}

var durationUnits = map[string]time.Duration{
	"ns":  time.Nanosecond,
	"us":  time.Microsecond,
	"µs":  time.Microsecond,
	"ms":  time.Millisecond,
	"s":   time.Second,
	"m":   time.Minute,
	"min": time.Minute,
	"h":   time.Hour,
	"d":   Day,
	"w":   Week,
}

var durationPart = regexp.MustCompile(`([0-9]*\.?[0-9]+)([a-zµ]+)`)

func parseExtendedDuration(s string) (time.Duration, error) {
	matches := durationPart.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total time.Duration
	next := 0
	for _, m := range matches {
		if m[0] != next {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		next = m[1]

		val, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in duration %q: %w", s, err)
		}
		unit, ok := durationUnits[s[m[4]:m[5]]]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q in duration %q", s[m[4]:m[5]], s)
		}
		total += time.Duration(val * float64(unit))
	}
	if next != len(s) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}

// Distance is a length in meters. In YAML it may carry a unit; plain
// numbers are meters.
type Distance float64

// NauticalMile and Cable are the maritime distance units in meters.
const (
	NauticalMile = 1852.0
	Cable        = NauticalMile / 10
)

// Longest suffixes first so "nm" is not read as "m".
var distanceUnits = []struct {
	suffix string
	meters float64
}{
	{"cbl", Cable},
	{"km", 1000},
	{"nm", NauticalMile},
	{"m", 1},
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Distance) UnmarshalYAML(value *yaml.Node) error {
	var f float64
	if value.Tag == "!!int" || value.Tag == "!!float" {
		if err := value.Decode(&f); err != nil {
			return err
		}
		*d = Distance(f)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	meters, err := ParseDistance(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Distance(meters)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Distance) MarshalYAML() (interface{}, error) {
	return strconv.FormatFloat(float64(d), 'f', -1, 64) + "m", nil
}

// ParseDistance converts a distance such as "0.5nm", "3cbl" or "250" into meters.
func ParseDistance(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	num, mult := s, 1.0
	for _, u := range distanceUnits {
		if strings.HasSuffix(s, u.suffix) {
			num, mult = strings.TrimSuffix(s, u.suffix), u.meters
			break
		}
	}

	val, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q: %w", s, err)
	}
	return val * mult, nil
}
