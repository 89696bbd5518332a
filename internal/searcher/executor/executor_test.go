package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

func buildEngine(t *testing.T) *relevance.Engine {
	t.Helper()
	pages := []*corpus.Page{
		corpus.NewPage("go", "Go", "gophers write goroutines and channels", []string{"hub"}),
		corpus.NewPage("rust", "Rust", "crabs borrow and check", []string{"hub"}),
		corpus.NewPage("hub", "Hub", "a directory of languages: go, rust, java", []string{"go", "rust", "java"}),
		corpus.NewPage("java", "Java", "beans and the jvm garbage collector", []string{"hub"}),
	}
	e, err := relevance.Build(corpus.Documents(pages), relevance.Options{Damping: 0.85, Epsilon: 1e-8, IterationLimit: 200, Workers: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

func TestSearch(t *testing.T) {
	exec, err := New(buildEngine(t), ranker.Weights{Relevance: 0.7, Rank: 0.3}, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		name      string
		query     string
		limit     int
		wantFirst string
		wantHits  int
	}{
		{"single page term", "gophers", 10, "go", 1},
		{"shared term favours the hub", "Go", 10, "hub", 2},
		{"limited", "go rust java", 1, "hub", 4},
		{"no match", "haskell", 10, "", 0},
		{"only stop words", "the and", 10, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := exec.Search(context.Background(), tt.query, tt.limit)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if res.TotalHits != tt.wantHits {
				t.Errorf("TotalHits = %d, want %d", res.TotalHits, tt.wantHits)
			}
			if len(res.Results) > tt.limit {
				t.Errorf("returned %d results, limit %d", len(res.Results), tt.limit)
			}
			if tt.wantFirst == "" {
				if len(res.Results) != 0 {
					t.Errorf("results = %+v, want none", res.Results)
				}
				return
			}
			if len(res.Results) == 0 || res.Results[0].DocID != tt.wantFirst {
				t.Errorf("results = %+v, want %s first", res.Results, tt.wantFirst)
			}
			for i := 1; i < len(res.Results); i++ {
				if res.Results[i].Score > res.Results[i-1].Score {
					t.Errorf("results not sorted: %+v", res.Results)
				}
			}
		})
	}
}

func TestSearchNegativeLimit(t *testing.T) {
	exec, err := New(buildEngine(t), ranker.Weights{Relevance: 1}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := exec.Search(context.Background(), "go", -1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSearchCancelled(t *testing.T) {
	exec, err := New(buildEngine(t), ranker.Weights{Relevance: 1}, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.Search(ctx, "go", 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
