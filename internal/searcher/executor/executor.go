// Package executor answers free-text queries against a built relevance
// engine: the query is tokenized, every document is scored by cosine
// relevance, hits are blended with PageRank and the best k are returned.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/tokenizer"
)

// scanChunk is the number of documents one goroutine scores per task.
const scanChunk = 1024

// Scorer is the read side of relevance.Engine.
type Scorer interface {
	IDs() []string
	PageRank(id string) (float64, error)
	Relevance(query []string, id string) (float64, error)
}

type SearchResult struct {
	Query     string             `json:"query"`
	Terms     []string           `json:"terms"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	scorer  Scorer
	ranker  *ranker.Ranker
	workers int
	logger  *slog.Logger
}

// New prepares an executor over scorer. workers bounds scan parallelism
// (0 = NumCPU).
func New(scorer Scorer, weights ranker.Weights, workers int) (*Executor, error) {
	var maxRank float64
	for _, id := range scorer.IDs() {
		pr, err := scorer.PageRank(id)
		if err != nil {
			return nil, fmt.Errorf("reading pagerank of %q: %w", id, err)
		}
		maxRank = max(maxRank, pr)
	}
	r, err := ranker.New(weights, maxRank)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{
		scorer:  scorer,
		ranker:  r,
		workers: workers,
		logger:  slog.Default().With("component", "query-executor"),
	}, nil
}

// Search returns up to limit hits for query. Documents with zero relevance
// are not hits, however high their PageRank.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	terms := tokenizer.Terms(query)
	if len(terms) == 0 {
		return &SearchResult{Query: query, Terms: []string{}, Results: []ranker.ScoredDoc{}}, nil
	}
	hits, err := e.scan(ctx, terms)
	if err != nil {
		return nil, err
	}
	top, err := merger.TopK(limit, hits)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query executed",
		"query", query,
		"terms", terms,
		"hits", len(hits),
		"results", len(top),
	)
	return &SearchResult{
		Query:     query,
		Terms:     terms,
		TotalHits: len(hits),
		Results:   top,
	}, nil
}

// scan scores every document in fixed chunks. Each task writes only its own
// slot of parts.
func (e *Executor) scan(ctx context.Context, terms []string) ([]ranker.ScoredDoc, error) {
	ids := e.scorer.IDs()
	parts := make([][]ranker.ScoredDoc, (len(ids)+scanChunk-1)/scanChunk)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range parts {
		lo, hi := i*scanChunk, min((i+1)*scanChunk, len(ids))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, id := range ids[lo:hi] {
				rel, err := e.scorer.Relevance(terms, id)
				if err != nil {
					return fmt.Errorf("scoring %q: %w", id, err)
				}
				if rel <= 0 {
					continue
				}
				pr, err := e.scorer.PageRank(id)
				if err != nil {
					return fmt.Errorf("ranking %q: %w", id, err)
				}
				parts[i] = append(parts[i], e.ranker.Score(id, rel, pr))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var hits []ranker.ScoredDoc
	for _, part := range parts {
		hits = append(hits, part...)
	}
	return hits, nil
}
