package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid_Invalid(t *testing.T) {
	for _, size := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewGrid(size)
		if !errors.Is(err, ErrInvalidGridSize) {
			t.Errorf("NewGrid(%v) error = %v, want ErrInvalidGridSize", size, err)
		}
	}
}

func TestGrid_AnchorBoundsPoint(t *testing.T) {
	sizes := []float64{0.25, 1, 4, 7}
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 55.7, Lon: 12.6},
		{Lat: -33.9, Lon: 151.2},
		{Lat: 89.99, Lon: -179.99},
		{Lat: -90, Lon: -180},
		{Lat: 12, Lon: 8},
		{Lat: -0.0001, Lon: 179.9999},
	}

	for _, size := range sizes {
		g, err := NewGrid(size)
		require.NoError(t, err)
		for _, p := range points {
			id, err := g.CellID(p.Lat, p.Lon)
			require.NoError(t, err)
			c := g.Anchor(id)
			assert.LessOrEqual(t, c.Lat, p.Lat, "size=%v p=%v", size, p)
			assert.Less(t, p.Lat, c.Lat+size, "size=%v p=%v", size, p)
			assert.LessOrEqual(t, c.Lon, p.Lon, "size=%v p=%v", size, p)
			assert.Less(t, p.Lon, c.Lon+size, "size=%v p=%v", size, p)
		}
	}
}

func TestGrid_Boundaries(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)

	// A point on an internal boundary belongs to the cell it anchors.
	id, err := g.CellID(8, 4)
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 8, Lon: 4}, g.Anchor(id))

	// The antimeridian wraps to the western edge.
	east, err := g.CellID(0, 180)
	require.NoError(t, err)
	west, err := g.CellID(0, -180)
	require.NoError(t, err)
	assert.Equal(t, west, east)
	assert.Equal(t, -180.0, g.Anchor(east).Lon)

	// The north pole stays in the top row.
	pole, err := g.CellID(90, 0)
	require.NoError(t, err)
	c := g.Anchor(pole)
	assert.Equal(t, 86.0, c.Lat)
	assert.LessOrEqual(t, 90.0, c.Lat+g.CellSize())
}

func TestGrid_Deterministic(t *testing.T) {
	g, err := NewGrid(0.5)
	require.NoError(t, err)
	a, _ := g.CellID(55.123, 12.456)
	b, _ := g.CellID(55.123, 12.456)
	assert.Equal(t, a, b)

	other, _ := g.CellID(55.623, 12.456)
	assert.NotEqual(t, a, other)
}

func TestGrid_InvalidPosition(t *testing.T) {
	g, err := NewGrid(1)
	require.NoError(t, err)
	_, err = g.CellID(91, 0)
	assert.ErrorIs(t, err, ErrInvalidPosition)
	_, err = g.CellID(0, math.NaN())
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestGrid_Corners(t *testing.T) {
	g, err := NewGrid(2)
	require.NoError(t, err)
	id, err := g.CellID(55.5, 12.5)
	require.NoError(t, err)
	from, to := g.Corners(id)
	assert.Equal(t, Point{Lat: 54, Lon: 12}, from)
	assert.Equal(t, Point{Lat: 56, Lon: 14}, to)
}

func TestGrid_AnchorRoundTrip(t *testing.T) {
	for _, size := range []float64{0.1, 0.2, 0.3, 0.7, 7} {
		g, err := NewGrid(size)
		require.NoError(t, err)

		mismatches := 0
		for id := int64(0); id < g.Len(); id++ {
			a := g.Anchor(id)
			if !a.Valid() {
				t.Fatalf("size=%v: anchor %v of cell %d is not a valid position", size, a, id)
			}
			got, err := g.CellID(a.Lat, a.Lon)
			require.NoError(t, err)
			if got != id {
				if mismatches < 5 {
					t.Errorf("size=%v: anchor %v of cell %d maps to cell %d (anchor %v)", size, a, id, got, g.Anchor(got))
				}
				mismatches++
			}
		}
		assert.Zero(t, mismatches, "size=%v", size)
	}
}

func TestGrid_CornerPointsOnBoundary(t *testing.T) {
	g, err := NewGrid(0.1)
	require.NoError(t, err)

	tests := []struct {
		lat, lon float64
	}{
		{17, -158.8},
		{-90, -179.3},
		{55.7, 12.6},
		{-33.9, 151.2},
		{0.3, -0.3},
	}
	for _, tt := range tests {
		id, err := g.CellID(tt.lat, tt.lon)
		require.NoError(t, err)
		c := g.Anchor(id)
		assert.LessOrEqual(t, c.Lat, tt.lat, "p=(%v,%v)", tt.lat, tt.lon)
		assert.Less(t, tt.lat, c.Lat+g.CellSize(), "p=(%v,%v)", tt.lat, tt.lon)
		assert.LessOrEqual(t, c.Lon, tt.lon, "p=(%v,%v)", tt.lat, tt.lon)
		assert.Less(t, tt.lon, c.Lon+g.CellSize(), "p=(%v,%v)", tt.lat, tt.lon)
	}
}

func TestGrid_CornersClippedAtPole(t *testing.T) {
	g, err := NewGrid(7)
	require.NoError(t, err)
	id, err := g.CellID(90, 0)
	require.NoError(t, err)
	from, to := g.Corners(id)
	assert.Equal(t, 85.0, from.Lat)
	assert.Equal(t, 90.0, to.Lat)
	assert.True(t, to.Valid())
}
