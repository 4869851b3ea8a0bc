package cluster

import (
	"sync"
)

const shardCount = 64

// accumulator is a sharded-lock map from cell id to cluster under
// construction. Every mutation of a cell happens under its shard lock.
type accumulator struct {
	limit  int
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	cells map[int64]*building
}

type building struct {
	cluster *Cluster
	seen    map[int]struct{}
}

func newAccumulator(limit int) *accumulator {
	a := &accumulator{limit: limit}
	for i := range a.shards {
		a.shards[i].cells = make(map[int64]*building)
	}
	return a
}

func (a *accumulator) shardFor(id int64) *shard {
	h := uint64(id) * 0x9E3779B97F4A7C15
	return &a.shards[h>>58]
}

// add counts c in cell id, creating the cell on first use.
func (a *accumulator) add(id int64, c Candidate) {
	s := a.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.cells[id]
	if !ok {
		s.cells[id] = &building{
			cluster: &Cluster{Count: 1, Members: []Candidate{c}},
			seen:    map[int]struct{}{c.ID(): {}},
		}
		return
	}

	b.cluster.Count++
	if len(b.cluster.Members) >= a.limit {
		return
	}
	if _, dup := b.seen[c.ID()]; dup {
		return
	}
	b.seen[c.ID()] = struct{}{}
	b.cluster.Members = append(b.cluster.Members, c)
}

// drain returns the finished clusters. It must only be called once all
// writers are done.
func (a *accumulator) drain() map[int64]*Cluster {
	out := make(map[int64]*Cluster)
	for i := range a.shards {
		for id, b := range a.shards[i].cells {
			out[id] = b.cluster
		}
	}
	return out
}
