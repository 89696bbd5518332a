// Package pagerank computes link-authority scores by damped power iteration
// over a graph.Graph.
//
// Each iteration builds an entirely new rank vector from a frozen copy of the
// previous one. Dangling nodes (no outbound edges) spread their mass evenly
// over every node, themselves included, so the total mass stays at 1.
package pagerank

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/graph"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// minChunk is the smallest slice of nodes handed to one worker.
const minChunk = 512

// Params configures Solve.
type Params struct {
	// Damping is the probability of following an outbound link, in (0,1).
	Damping float64
	// Epsilon is the convergence threshold on the largest per-node change.
	Epsilon float64
	// Limit bounds the number of iterations.
	Limit int
	// Workers bounds the goroutines used within one iteration. Zero means
	// runtime.NumCPU().
	Workers int
}

func (p Params) validate() error {
	if !(p.Damping > 0 && p.Damping < 1) {
		return fmt.Errorf("%w: damping must be in (0,1), got %v", apperrors.ErrInvalidInput, p.Damping)
	}
	if !(p.Epsilon > 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %v", apperrors.ErrInvalidInput, p.Epsilon)
	}
	if p.Limit <= 0 {
		return fmt.Errorf("%w: iteration limit must be positive, got %d", apperrors.ErrInvalidInput, p.Limit)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", apperrors.ErrInvalidInput, p.Workers)
	}
	return nil
}

// Stats describes how a solve went.
type Stats struct {
	Iterations int
	Delta      float64
}

// Ranks maps a document id to its PageRank.
type Ranks map[string]float64

// Rank returns the score of id, or ErrDocumentNotFound if id was not part of
// the solved graph.
func (r Ranks) Rank(id string) (float64, error) {
	score, ok := r[id]
	if !ok {
		return 0, fmt.Errorf("pagerank of %q: %w", id, apperrors.ErrDocumentNotFound)
	}
	return score, nil
}

// Sum returns the total rank mass.
func (r Ranks) Sum() float64 {
	var total float64
	for _, score := range r {
		total += score
	}
	return total
}

// Solve runs power iteration until the largest per-node change is at most
// p.Epsilon. Exceeding p.Limit iterations is an error wrapping
// ErrNotConverged; no partial table is returned.
func Solve(g graph.Graph, p Params) (Ranks, Stats, error) {
	if err := p.validate(); err != nil {
		return nil, Stats{}, err
	}
	if len(g) == 0 {
		return nil, Stats{}, fmt.Errorf("%w: cannot rank an empty graph", apperrors.ErrInvalidInput)
	}
	s := newSolver(g, p)
	var stats Stats
	for i := 1; i <= p.Limit; i++ {
		delta, err := s.step()
		if err != nil {
			return nil, stats, err
		}
		stats = Stats{Iterations: i, Delta: delta}
		if delta <= p.Epsilon {
			return s.ranks(), stats, nil
		}
	}
	return nil, stats, fmt.Errorf("%w: pagerank delta %g still above epsilon %g after %d iterations",
		apperrors.ErrNotConverged, stats.Delta, p.Epsilon, p.Limit)
}

// solver holds the graph in index form. old is read-only during a step and
// next is written; they swap once the step is complete.
type solver struct {
	nodes    []string
	inbound  [][]int
	outDeg   []int
	dangling []int
	damping  float64
	workers  int
	old      []float64
	next     []float64
}

func newSolver(g graph.Graph, p Params) *solver {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}
	rev := g.Reverse()
	s := &solver{
		nodes:   nodes,
		inbound: make([][]int, len(nodes)),
		outDeg:  make([]int, len(nodes)),
		damping: p.Damping,
		workers: p.Workers,
		old:     make([]float64, len(nodes)),
		next:    make([]float64, len(nodes)),
	}
	if s.workers == 0 {
		s.workers = runtime.NumCPU()
	}
	initial := 1.0 / float64(len(nodes))
	for i, id := range nodes {
		s.outDeg[i] = len(g[id])
		if s.outDeg[i] == 0 {
			s.dangling = append(s.dangling, i)
		}
		in := make([]int, 0, len(rev[id]))
		for _, from := range rev[id] {
			in = append(in, index[from])
		}
		s.inbound[i] = in
		s.old[i] = initial
	}
	return s
}

// step computes one iteration into next, swaps the tables and returns the
// largest absolute change.
func (s *solver) step() (float64, error) {
	n := float64(len(s.nodes))
	var danglingMass float64
	for _, q := range s.dangling {
		danglingMass += s.old[q]
	}
	base := (1-s.damping)/n + s.damping*danglingMass/n

	if err := s.parallel(func(lo, hi int) {
		for v := lo; v < hi; v++ {
			var direct float64
			for _, q := range s.inbound[v] {
				direct += s.old[q] / float64(s.outDeg[q])
			}
			s.next[v] = base + s.damping*direct
		}
	}); err != nil {
		return 0, err
	}

	var delta float64
	for i := range s.next {
		if d := math.Abs(s.next[i] - s.old[i]); d > delta {
			delta = d
		}
	}
	s.old, s.next = s.next, s.old
	return delta, nil
}

// parallel splits [0, len(nodes)) into contiguous ranges and runs fn on each.
// Ranges are disjoint, so workers never write the same slot.
func (s *solver) parallel(fn func(lo, hi int)) error {
	total := len(s.nodes)
	workers := s.workers
	if limit := (total + minChunk - 1) / minChunk; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		fn(0, total)
		return nil
	}
	chunk := (total + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < total; lo += chunk {
		lo, hi := lo, min(lo+chunk, total)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	return g.Wait()
}

// ranks returns the current table keyed by id.
func (s *solver) ranks() Ranks {
	out := make(Ranks, len(s.nodes))
	for i, id := range s.nodes {
		out[id] = s.old[i]
	}
	return out
}
