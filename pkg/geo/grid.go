package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGridSize is returned for a non-positive or non-finite cell size.
var ErrInvalidGridSize = errors.New("invalid grid size")

// Grid partitions latitude/longitude space into square cells of a fixed size
// in degrees. Cell ids from grids of different sizes are not comparable.
type Grid struct {
	size float64
	rows int64
	cols int64
}

// NewGrid creates a grid with the given cell size in degrees.
func NewGrid(size float64) (Grid, error) {
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return Grid{}, fmt.Errorf("%w: %v", ErrInvalidGridSize, size)
	}
	g := Grid{
		size: size,
		rows: int64(math.Ceil(180 / size)),
		cols: int64(math.Ceil(360 / size)),
	}
	// Drop a trailing row or column whose anchor rounds onto the edge.
	for g.rows > 1 && float64(g.rows-1)*size-90 >= 90 {
		g.rows--
	}
	for g.cols > 1 && float64(g.cols-1)*size-180 >= 180 {
		g.cols--
	}
	return g, nil
}

// CellSize returns the cell edge length in degrees.
func (g Grid) CellSize() float64 {
	return g.size
}

// CellID maps a position to the id of the cell containing it.
// A point on a cell boundary belongs to the cell whose lower-left corner it
// lies on. Latitude 90 belongs to the top row and longitude 180 wraps to -180.
func (g Grid) CellID(lat, lon float64) (int64, error) {
	if !Valid(lat, lon) {
		return 0, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidPosition, lat, lon)
	}
	row := g.index(lat, -90, g.rows)
	col := g.index(NormalizeLon(lon), -180, g.cols)
	return row*g.cols + col, nil
}

// Anchor returns the lower-left corner of a cell.
func (g Grid) Anchor(cellID int64) Point {
	row := cellID / g.cols
	col := cellID % g.cols
	return Point{
		Lat: float64(row)*g.size - 90,
		Lon: float64(col)*g.size - 180,
	}
}

// Len returns the number of cells in the grid.
func (g Grid) Len() int64 {
	return g.rows * g.cols
}

// Corners returns the lower-left and upper-right corners of a cell. Cells of
// the top row and the last column are clipped at the north pole and the
// antimeridian.
func (g Grid) Corners(cellID int64) (from, to Point) {
	from = g.Anchor(cellID)
	to = Point{Lat: math.Min(from.Lat+g.size, 90), Lon: math.Min(from.Lon+g.size, 180)}
	return from, to
}

// index returns the cell index along one axis. The result is checked
// against the corners as Anchor computes them, so a coordinate lying on a
// corner always maps to the cell it anchors.
func (g Grid) index(coord, origin float64, n int64) int64 {
	i := int64(math.Floor((coord - origin) / g.size))
	for i > 0 && float64(i)*g.size+origin > coord {
		i--
	}
	for i < n-1 && float64(i+1)*g.size+origin <= coord {
		i++
	}
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
