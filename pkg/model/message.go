package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aisview/pkg/geo"
)

// AIS message ids handled by the view.
const (
	TypePositionA1  = 1
	TypePositionA2  = 2
	TypePositionA3  = 3
	TypeStaticA     = 5
	TypePositionB   = 18
	TypeExtendedB   = 19
	TypeStaticB     = 24
	headingNotAvail = 511
)

// ErrUnparsable marks a raw payload that could not be decoded.
var ErrUnparsable = errors.New("unparsable message")

// RawMessage is a message as held by the archive: undecoded payload plus index fields.
type RawMessage struct {
	MMSI      int       `json:"mmsi"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload"`
}

// Message is a decoded AIS report.
type Message struct {
	Type      int       `json:"type"`
	MMSI      int       `json:"mmsi"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`

	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	SOG     float64  `json:"sog,omitempty"`
	COG     float64  `json:"cog,omitempty"`
	Heading *int     `json:"heading,omitempty"`

	Name     string `json:"name,omitempty"`
	Callsign string `json:"callsign,omitempty"`
	IMO      int    `json:"imo,omitempty"`
	ShipType int    `json:"ship_type,omitempty"`
	Flag     string `json:"flag,omitempty"`
}

// IsPosition reports whether the message carries a vessel position.
func (m *Message) IsPosition() bool {
	switch m.Type {
	case TypePositionA1, TypePositionA2, TypePositionA3, TypePositionB, TypeExtendedB:
		return true
	}
	return false
}

// IsStatic reports whether the message carries static/voyage data.
func (m *Message) IsStatic() bool {
	return m.Type == TypeStaticA || m.Type == TypeStaticB
}

// Class returns the transponder class implied by the message type, or "" if unknown.
func (m *Message) Class() VesselClass {
	switch m.Type {
	case TypePositionA1, TypePositionA2, TypePositionA3, TypeStaticA:
		return ClassA
	case TypePositionB, TypeExtendedB, TypeStaticB:
		return ClassB
	}
	return ""
}

// Position returns the reported position if present and valid.
// AIS uses 91/181 for "not available", which fails validation.
func (m *Message) Position() (geo.Point, bool) {
	if m.Lat == nil || m.Lon == nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: *m.Lat, Lon: *m.Lon}
	return p, p.Valid()
}

// TrueHeading returns the heading, or 511 when not available.
func (m *Message) TrueHeading() int {
	if m.Heading == nil {
		return headingNotAvail
	}
	return *m.Heading
}

// Encode serializes a message into an archive record.
func (m *Message) Encode() (RawMessage, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return RawMessage{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return RawMessage{MMSI: m.MMSI, Timestamp: m.Timestamp, Payload: payload}, nil
}

// Decode parses an archive record. The record's index fields win over the payload's.
func Decode(raw RawMessage) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw.Payload, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if m.Type == 0 {
		return Message{}, fmt.Errorf("%w: missing type", ErrUnparsable)
	}
	m.MMSI = raw.MMSI
	if !raw.Timestamp.IsZero() {
		m.Timestamp = raw.Timestamp
	}
	return m, nil
}
