// Package tfidf builds corpus-wide inverse document frequencies and per
// document TF-IDF vectors, and scores ad-hoc queries against them by cosine
// similarity.
package tfidf

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// Vector maps a term to its weight.
type Vector map[string]float64

// Norm returns the Euclidean norm over every entry.
func (v Vector) Norm() float64 {
	var sumSquares float64
	for _, w := range v {
		sumSquares += w * w
	}
	return math.Sqrt(sumSquares)
}

// Model is the immutable result of Build. It is safe for concurrent use.
type Model struct {
	idf     map[string]float64
	vectors map[string]Vector
	norms   map[string]float64
}

// Build computes the IDF table and every document vector. Term frequencies
// are counted per document on up to workers goroutines (0 means NumCPU);
// document frequencies are then merged in corpus order and IDF is finalised
// before any TF-IDF weight is derived from it.
//
// An empty corpus, a document without terms, or a repeated id is rejected
// with ErrInvalidInput.
func Build(docs []document.Document, workers int) (*Model, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", apperrors.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q", apperrors.ErrInvalidInput, doc.ID())
		}
		seen[doc.ID()] = struct{}{}
	}

	tfs, err := termFrequencies(docs, workers)
	if err != nil {
		return nil, err
	}

	docFreq := make(map[string]int)
	for _, tf := range tfs {
		for term := range tf {
			docFreq[term]++
		}
	}
	total := float64(len(docs))
	idf := make(map[string]float64, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log(total / float64(df))
	}

	m := &Model{
		idf:     idf,
		vectors: make(map[string]Vector, len(docs)),
		norms:   make(map[string]float64, len(docs)),
	}
	for i, doc := range docs {
		vec := make(Vector, len(tfs[i]))
		for term, tf := range tfs[i] {
			vec[term] = tf * idf[term]
		}
		m.vectors[doc.ID()] = vec
		m.norms[doc.ID()] = vec.Norm()
	}
	return m, nil
}

// termFrequencies returns the TF table of every document, index-aligned with
// docs. Each goroutine writes only its own slots.
func termFrequencies(docs []document.Document, workers int) ([]Vector, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tfs := make([]Vector, len(docs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, doc := range docs {
		g.Go(func() error {
			terms := doc.Terms()
			if len(terms) == 0 {
				return fmt.Errorf("%w: document %q has no terms", apperrors.ErrInvalidInput, doc.ID())
			}
			tfs[i] = TermFrequencies(terms)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tfs, nil
}

// TermFrequencies returns count(term)/len(terms) for every distinct term.
// An empty slice yields an empty vector.
func TermFrequencies(terms []string) Vector {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	tf := make(Vector, len(counts))
	n := float64(len(terms))
	for term, c := range counts {
		tf[term] = float64(c) / n
	}
	return tf
}

// IDF returns the inverse document frequency of term and whether the term
// occurs anywhere in the corpus.
func (m *Model) IDF(term string) (float64, bool) {
	v, ok := m.idf[term]
	return v, ok
}

// Vector returns the TF-IDF vector of a document. Callers must not modify it.
func (m *Model) Vector(id string) (Vector, bool) {
	v, ok := m.vectors[id]
	return v, ok
}

// Len returns the number of documents in the model.
func (m *Model) Len() int {
	return len(m.vectors)
}

// Terms returns the vocabulary size.
func (m *Model) Terms() int {
	return len(m.idf)
}

// QueryVector weights the query's term frequencies by corpus IDF. Terms never
// seen in the corpus get weight 0.
func (m *Model) QueryVector(query []string) Vector {
	tf := TermFrequencies(query)
	vec := make(Vector, len(tf))
	for term, f := range tf {
		vec[term] = f * m.idf[term]
	}
	return vec
}

// Relevance returns the cosine similarity between query and document id, in
// [0,1]. It is 0 when either vector has zero magnitude. An id outside the
// corpus yields ErrDocumentNotFound.
func (m *Model) Relevance(query []string, id string) (float64, error) {
	doc, ok := m.vectors[id]
	if !ok {
		return 0, fmt.Errorf("relevance of %q: %w", id, apperrors.ErrDocumentNotFound)
	}
	q := m.QueryVector(query)
	var dot float64
	for term, qw := range q {
		dot += doc[term] * qw
	}
	denom := m.norms[id] * q.Norm()
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}
