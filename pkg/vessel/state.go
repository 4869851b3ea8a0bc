// Package vessel replays decoded AIS messages into a per-vessel state.
package vessel

import (
	"errors"
	"fmt"
	"time"

	"aisview/pkg/model"
	"aisview/pkg/track"
)

var (
	// ErrUnsupported is returned for message types that carry no vessel data.
	ErrUnsupported = errors.New("unsupported message type")
	// ErrClassMismatch is returned when a class A vessel receives a class B report or vice versa.
	ErrClassMismatch = errors.New("vessel class mismatch")
	// ErrWrongVessel is returned for a message addressed to another MMSI.
	ErrWrongVessel = errors.New("message for another vessel")
	// ErrOutOfOrder is returned for a position report older than the current position.
	ErrOutOfOrder = errors.New("position report out of order")
)

// State accumulates what is known about one vessel. The zero value is an
// empty state whose class is fixed by the first applicable message.
type State struct {
	target model.Target
	valid  bool
}

// Apply folds m into the state. A message that does not apply leaves the
// state untouched and returns an error describing why.
func (s *State) Apply(m *model.Message) error {
	class := m.Class()
	if class == "" {
		return fmt.Errorf("%w: %d", ErrUnsupported, m.Type)
	}
	if s.valid {
		if m.MMSI != s.target.MMSI {
			return fmt.Errorf("%w: %d != %d", ErrWrongVessel, m.MMSI, s.target.MMSI)
		}
		if class != s.target.Class {
			return fmt.Errorf("%w: class %s target, class %s report", ErrClassMismatch, s.target.Class, class)
		}
		if m.IsPosition() && m.Timestamp.Before(s.target.PositionTime) {
			return fmt.Errorf("%w: %s before %s", ErrOutOfOrder,
				m.Timestamp.Format(time.RFC3339), s.target.PositionTime.Format(time.RFC3339))
		}
	} else {
		s.target = model.Target{MMSI: m.MMSI, Class: class}
		s.valid = true
	}

	t := &s.target
	if m.Source != (model.Source{}) {
		t.Source = m.Source
	}

	switch {
	case m.IsPosition():
		if p, ok := m.Position(); ok {
			t.Pos = &p
		} else {
			t.Pos = nil
		}
		t.SOG = m.SOG
		t.COG = m.COG
		t.Heading = m.TrueHeading()
		t.PositionTime = m.Timestamp
	case m.IsStatic():
		t.HasStatic = true
		if m.Name != "" {
			t.Name = m.Name
		}
		if m.Callsign != "" {
			t.Callsign = m.Callsign
		}
		if m.IMO != 0 {
			t.IMO = m.IMO
		}
		if m.ShipType != 0 {
			t.ShipType = m.ShipType
		}
		if m.Flag != "" {
			t.Flag = m.Flag
		}
		t.StaticTime = m.Timestamp
	}

	if m.Timestamp.After(t.LastReport) {
		t.LastReport = m.Timestamp
	}
	return nil
}

// Valid reports whether at least one message has been applied.
func (s *State) Valid() bool {
	return s.valid
}

// Target returns a copy of the accumulated vessel.
func (s *State) Target() *model.Target {
	return s.target.Clone()
}

// TrackPoint returns the current position as a track sample.
func (s *State) TrackPoint() (track.Point, bool) {
	p, ok := s.target.Position()
	if !s.valid || !ok {
		return track.Point{}, false
	}
	return track.Point{
		Point:   p,
		Time:    s.target.PositionTime,
		SOG:     s.target.SOG,
		COG:     s.target.COG,
		Heading: s.target.Heading,
	}, true
}
