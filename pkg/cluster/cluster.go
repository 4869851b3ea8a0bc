// Package cluster groups positioned candidates into grid-aligned clusters.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"aisview/pkg/geo"
)

// ErrInvalidLimit is returned for a non-positive sample cap.
var ErrInvalidLimit = errors.New("invalid cluster limit")

// Candidate is anything with a stable id and an optional position.
type Candidate interface {
	ID() int
	Position() (geo.Point, bool)
}

// Cluster aggregates the candidates falling in one grid cell.
type Cluster struct {
	CellID  int64       `json:"cell_id"`
	From    geo.Point   `json:"from"`
	To      geo.Point   `json:"to"`
	Count   int         `json:"count"`
	Density float64     `json:"density"` // candidates per km^2
	Members []Candidate `json:"-"`
}

// Aggregator clusters candidates using a bounded pool of workers.
type Aggregator struct {
	workers int
}

// NewAggregator creates an aggregator. workers <= 0 uses GOMAXPROCS.
func NewAggregator(workers int) *Aggregator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Aggregator{workers: workers}
}

// Aggregate assigns every candidate with a valid position to its grid cell.
// Each cluster's Count is the exact number of such candidates and Members
// holds at most limit distinct candidates. Candidates without a valid
// position are skipped. On cancellation the partial map is discarded.
func (a *Aggregator) Aggregate(ctx context.Context, candidates []Candidate, limit int, grid geo.Grid) (map[int64]*Cluster, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if grid.CellSize() <= 0 {
		return nil, fmt.Errorf("%w: %v", geo.ErrInvalidGridSize, grid.CellSize())
	}

	acc := newAccumulator(limit)

	workers := a.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	chunk := 0
	if workers > 0 {
		chunk = (len(candidates) + workers - 1) / workers
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(candidates))
		if start >= end {
			break
		}
		wg.Add(1)
		go func(part []Candidate) {
			defer wg.Done()
			for i, c := range part {
				if i%1024 == 0 && ctx.Err() != nil {
					return
				}
				p, ok := c.Position()
				if !ok {
					continue
				}
				id, err := grid.CellID(p.Lat, p.Lon)
				if err != nil {
					continue
				}
				acc.add(id, c)
			}
		}(candidates[start:end])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters := acc.drain()
	for id, c := range clusters {
		c.CellID = id
		c.From, c.To = grid.Corners(id)
		c.Density = density(c.From, c.To, c.Count)
	}
	return clusters, nil
}

// minEdgeKm is the shortest cell edge treated as non-degenerate. Haversine
// returns rounding noise rather than zero along a pole.
const minEdgeKm = 1e-6

// density divides count by the cell area measured along the edges meeting
// at the from corner. A degenerate (polar) cell reports zero.
func density(from, to geo.Point, count int) float64 {
	lowerRight := geo.Point{Lat: from.Lat, Lon: to.Lon}
	upperLeft := geo.Point{Lat: to.Lat, Lon: from.Lon}
	width := geo.Distance(from, lowerRight) / 1000
	height := geo.Distance(from, upperLeft) / 1000
	if width < minEdgeKm || height < minEdgeKm {
		return 0
	}
	return float64(count) / (width * height)
}
