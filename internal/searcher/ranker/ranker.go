// Package ranker blends query relevance and link authority into the single
// score search results are ordered by.
package ranker

import (
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// ScoredDoc is one search hit.
type ScoredDoc struct {
	DocID     string  `json:"doc_id"`
	Score     float64 `json:"score"`
	Relevance float64 `json:"relevance"`
	PageRank  float64 `json:"pagerank"`
}

// Weights sets how much each signal contributes. They need not sum to 1.
type Weights struct {
	Relevance float64
	Rank      float64
}

func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Rank < 0 || math.IsNaN(w.Relevance) || math.IsNaN(w.Rank) {
		return fmt.Errorf("%w: weights must be non-negative", apperrors.ErrInvalidInput)
	}
	if w.Relevance == 0 && w.Rank == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", apperrors.ErrInvalidInput)
	}
	return nil
}

// Ranker scores hits against a fixed corpus. PageRank is divided by the
// corpus maximum so both signals live in [0,1] before weighting.
type Ranker struct {
	weights Weights
	maxRank float64
}

func New(weights Weights, maxRank float64) (*Ranker, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if !(maxRank > 0) {
		return nil, fmt.Errorf("%w: max pagerank must be positive, got %v", apperrors.ErrInvalidInput, maxRank)
	}
	return &Ranker{weights: weights, maxRank: maxRank}, nil
}

// Score returns the hit for id. Scores are rounded to 6 decimals so equal
// inputs compare equal across runs.
func (r *Ranker) Score(id string, relevance, pageRank float64) ScoredDoc {
	return ScoredDoc{
		DocID:     id,
		Score:     Combine(relevance, pageRank/r.maxRank, r.weights),
		Relevance: relevance,
		PageRank:  pageRank,
	}
}

// Combine is the weighted sum of relevance and normalised rank.
func Combine(relevance, normRank float64, w Weights) float64 {
	return math.Round((w.Relevance*relevance+w.Rank*normRank)*1e6) / 1e6
}
