package model

import (
	"time"

	"aisview/pkg/geo"
)

// VesselClass distinguishes AIS class A (SOLAS) from class B transponders.
type VesselClass string

const (
	ClassA VesselClass = "A"
	ClassB VesselClass = "B"
)

// SourceType tells terrestrial from satellite reception.
type SourceType string

const (
	SourceLive SourceType = "LIVE"
	SourceSat  SourceType = "SAT"
)

// Source describes where a report was received.
type Source struct {
	Country     string     `json:"country,omitempty"` // ISO 3166 alpha-3
	Region      string     `json:"region,omitempty"`
	BaseStation int        `json:"base_station,omitempty"`
	Type        SourceType `json:"type,omitempty"`
	System      string     `json:"system,omitempty"`
}

// Target is the registry's view of one vessel at a point in time.
type Target struct {
	MMSI   int         `json:"mmsi"`
	Class  VesselClass `json:"class"`
	Source Source      `json:"source"`

	// Kinematics (Pos is nil until a valid position report arrives)
	Pos          *geo.Point `json:"pos,omitempty"`
	SOG          float64    `json:"sog"`
	COG          float64    `json:"cog"`
	Heading      int        `json:"heading"`
	PositionTime time.Time  `json:"position_time"`

	// Static data
	HasStatic  bool      `json:"has_static"`
	Name       string    `json:"name,omitempty"`
	Callsign   string    `json:"callsign,omitempty"`
	IMO        int       `json:"imo,omitempty"`
	ShipType   int       `json:"ship_type,omitempty"`
	Flag       string    `json:"flag,omitempty"` // ISO 3166 alpha-3
	StaticTime time.Time `json:"static_time"`

	LastReport time.Time `json:"last_report"`
}

// ID returns the MMSI.
func (t *Target) ID() int {
	return t.MMSI
}

// Position returns the current position if it is known and valid.
func (t *Target) Position() (geo.Point, bool) {
	if t.Pos == nil || !t.Pos.Valid() {
		return geo.Point{}, false
	}
	return *t.Pos, true
}

// Alive reports whether the last report is no older than ttl.
func (t *Target) Alive(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.LastReport) <= ttl
}

// Clone returns a deep copy safe to hand out of the registry.
func (t *Target) Clone() *Target {
	c := *t
	if t.Pos != nil {
		p := *t.Pos
		c.Pos = &p
	}
	return &c
}
