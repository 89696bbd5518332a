// Package merger selects the best k hits out of a scored candidate set.
package merger

import (
	"container/heap"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

// TopK returns the k highest-scoring docs, best first; ties go to the lower
// DocID. When k covers the whole input every doc is returned, sorted. The
// input slice is not modified. A negative k is ErrInvalidInput.
func TopK(k int, docs []ranker.ScoredDoc) ([]ranker.ScoredDoc, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative, got %d", apperrors.ErrInvalidInput, k)
	}
	if k == 0 {
		return []ranker.ScoredDoc{}, nil
	}
	if k > len(docs) {
		k = len(docs)
	}
	// h is a min-heap of the current best k; its root is the weakest.
	h := make(scoredDocHeap, 0, k)
	for _, doc := range docs {
		if h.Len() < k {
			heap.Push(&h, doc)
			continue
		}
		if better(doc, h[0]) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	result := make([]ranker.ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ranker.ScoredDoc)
	}
	return result, nil
}

// better reports whether a ranks ahead of b.
func better(a, b ranker.ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
