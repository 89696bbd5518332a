// Package relevance is the scoring core of the search engine. Build runs the
// expensive corpus-wide precomputation once (link graph, PageRank, TF-IDF);
// the resulting Engine answers PageRank and query relevance lookups cheaply
// and is safe for concurrent readers.
package relevance

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/document"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/graph"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/pagerank"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// Document is the read-only page view the engine consumes.
type Document = document.Document

// Build phases reported to an Observer.
const (
	PhaseGraph    = "graph"
	PhasePageRank = "pagerank"
	PhaseTFIDF    = "tfidf"
)

// Options configures Build.
type Options struct {
	Damping        float64
	Epsilon        float64
	IterationLimit int
	// Workers bounds per-phase parallelism; 0 means runtime.NumCPU().
	Workers int
	// Observer, when set, receives build measurements.
	Observer Observer
}

// Observer receives measurements taken while an Engine is built.
type Observer interface {
	ObservePhase(phase string, d time.Duration)
	ObservePageRank(iterations int, delta float64)
	ObserveCorpus(documents, terms, edges int)
}

// BuildStats summarises a completed Build.
type BuildStats struct {
	Documents  int
	Edges      int
	Terms      int
	Iterations int
	FinalDelta float64
	GraphTime  time.Duration
	RankTime   time.Duration
	TFIDFTime  time.Duration
	TotalTime  time.Duration
}

// Engine holds the precomputed rank table and term model. Neither is
// modified after Build returns.
type Engine struct {
	ranks pagerank.Ranks
	model *tfidf.Model
	ids   []string
	stats BuildStats
}

// Build precomputes everything the engine needs from a static corpus. It
// fails with ErrInvalidInput for an empty corpus, duplicate ids, documents
// without terms or bad solver options, and with ErrNotConverged when
// PageRank does not settle within IterationLimit.
func Build(docs []Document, opts Options) (*Engine, error) {
	logger := slog.Default().With("component", "relevance-engine")
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", apperrors.ErrInvalidInput)
	}
	start := time.Now()

	phaseStart := time.Now()
	g := graph.Build(docs)
	if len(g) != len(docs) {
		return nil, fmt.Errorf("%w: corpus contains duplicate document ids", apperrors.ErrInvalidInput)
	}
	stats := BuildStats{
		Documents: len(g),
		Edges:     g.Edges(),
		GraphTime: time.Since(phaseStart),
	}
	logger.Debug("link graph built",
		"documents", stats.Documents,
		"edges", stats.Edges,
		"dangling", len(g.Dangling()),
	)

	phaseStart = time.Now()
	ranks, rankStats, err := pagerank.Solve(g, pagerank.Params{
		Damping: opts.Damping,
		Epsilon: opts.Epsilon,
		Limit:   opts.IterationLimit,
		Workers: opts.Workers,
	})
	if err != nil {
		logger.Error("pagerank failed",
			"iterations", rankStats.Iterations,
			"delta", rankStats.Delta,
			"error", err,
		)
		return nil, fmt.Errorf("computing pagerank: %w", err)
	}
	stats.RankTime = time.Since(phaseStart)
	stats.Iterations = rankStats.Iterations
	stats.FinalDelta = rankStats.Delta
	ids := g.Nodes()

	phaseStart = time.Now()
	model, err := tfidf.Build(docs, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("computing tf-idf: %w", err)
	}
	stats.TFIDFTime = time.Since(phaseStart)
	stats.Terms = model.Terms()
	stats.TotalTime = time.Since(start)

	if o := opts.Observer; o != nil {
		o.ObservePhase(PhaseGraph, stats.GraphTime)
		o.ObservePhase(PhasePageRank, stats.RankTime)
		o.ObservePhase(PhaseTFIDF, stats.TFIDFTime)
		o.ObservePageRank(stats.Iterations, stats.FinalDelta)
		o.ObserveCorpus(stats.Documents, stats.Terms, stats.Edges)
	}
	logger.Info("relevance engine built",
		"documents", stats.Documents,
		"edges", stats.Edges,
		"terms", stats.Terms,
		"pagerank_iterations", stats.Iterations,
		"pagerank_delta", stats.FinalDelta,
		"duration_ms", stats.TotalTime.Milliseconds(),
	)
	return &Engine{
		ranks: ranks,
		model: model,
		ids:   ids,
		stats: stats,
	}, nil
}

// PageRank returns the authority score of id. Unknown ids yield
// ErrDocumentNotFound.
func (e *Engine) PageRank(id string) (float64, error) {
	return e.ranks.Rank(id)
}

// Relevance returns the cosine similarity of query against document id.
// Unknown ids yield ErrDocumentNotFound; query terms outside the corpus
// simply contribute nothing.
func (e *Engine) Relevance(query []string, id string) (float64, error) {
	return e.model.Relevance(query, id)
}

// Contains reports whether id was part of the corpus.
func (e *Engine) Contains(id string) bool {
	_, ok := e.ranks[id]
	return ok
}

// IDs returns the corpus ids in ascending order. Callers must not modify
// the slice.
func (e *Engine) IDs() []string {
	return e.ids
}

func (e *Engine) Len() int {
	return len(e.ids)
}

func (e *Engine) Stats() BuildStats {
	return e.stats
}

// TopByPageRank returns up to n ids ordered by descending PageRank, ties
// broken by id.
func (e *Engine) TopByPageRank(n int) []string {
	ids := make([]string, len(e.ids))
	copy(ids, e.ids)
	sort.SliceStable(ids, func(i, j int) bool {
		return e.ranks[ids[i]] > e.ranks[ids[j]]
	})
	if n >= 0 && n < len(ids) {
		ids = ids[:n]
	}
	return ids
}
