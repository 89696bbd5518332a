package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.data))
	m.data = map[string]string{}
	return n, nil
}

func setup(t *testing.T, withCache bool) *http.ServeMux {
	t.Helper()
	pages := []*corpus.Page{
		corpus.NewPage("doc1", "", "cat dog", []string{"doc2"}),
		corpus.NewPage("doc2", "", "cat cat bird", nil),
	}
	engine, err := relevance.Build(corpus.Documents(pages), relevance.Options{Damping: 0.85, Epsilon: 1e-8, IterationLimit: 100})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	exec, err := executor.New(engine, ranker.Weights{Relevance: 0.7, Rank: 0.3}, 1)
	if err != nil {
		t.Fatalf("executor.New: %v", err)
	}
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&memStore{data: map[string]string{}}, time.Minute, nil)
	}
	mux := http.NewServeMux()
	New(exec, engine, qc, nil, 10, 50).Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, target string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: decoding %q: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestSearchEndpoint(t *testing.T) {
	mux := setup(t, false)
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantHits   float64
	}{
		{"match", "/api/v1/search?q=dog", http.StatusOK, 1},
		{"shared but zero-weight term", "/api/v1/search?q=cat", http.StatusOK, 0},
		{"missing query", "/api/v1/search", http.StatusBadRequest, 0},
		{"bad limit", "/api/v1/search?q=dog&limit=zero", http.StatusBadRequest, 0},
		{"negative limit", "/api/v1/search?q=dog&limit=-3", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, mux, http.MethodGet, tt.target)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
			if status == http.StatusOK && body["total_hits"].(float64) != tt.wantHits {
				t.Errorf("total_hits = %v, want %v", body["total_hits"], tt.wantHits)
			}
		})
	}
}

func TestPageRankEndpoint(t *testing.T) {
	mux := setup(t, false)
	status, body := do(t, mux, http.MethodGet, "/api/v1/pagerank?uri=doc2")
	if status != http.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	if pr := body["pagerank"].(float64); pr <= 0.5 || pr >= 1 {
		t.Errorf("pagerank(doc2) = %v, want the larger share", pr)
	}
	if status, _ := do(t, mux, http.MethodGet, "/api/v1/pagerank?uri=nope"); status != http.StatusNotFound {
		t.Errorf("unknown uri status = %d, want 404", status)
	}
	if status, _ := do(t, mux, http.MethodGet, "/api/v1/pagerank"); status != http.StatusBadRequest {
		t.Errorf("missing uri status = %d, want 400", status)
	}
}

func TestRelevanceEndpoint(t *testing.T) {
	mux := setup(t, false)
	tests := []struct {
		target     string
		wantStatus int
		want       float64
	}{
		{"/api/v1/relevance?q=dog&uri=doc1", http.StatusOK, 1},
		{"/api/v1/relevance?q=dog&uri=doc2", http.StatusOK, 0},
		{"/api/v1/relevance?q=dog&uri=missing", http.StatusNotFound, 0},
		{"/api/v1/relevance?uri=doc1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		status, body := do(t, mux, http.MethodGet, tt.target)
		if status != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.target, status, tt.wantStatus)
			continue
		}
		if status != http.StatusOK {
			continue
		}
		got := body["relevance"].(float64)
		if got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("%s: relevance = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestCacheEndpoints(t *testing.T) {
	mux := setup(t, true)
	do(t, mux, http.MethodGet, "/api/v1/search?q=dog")
	do(t, mux, http.MethodGet, "/api/v1/search?q=dog")

	status, body := do(t, mux, http.MethodGet, "/api/v1/cache/stats")
	if status != http.StatusOK || body["hits"].(float64) != 1 || body["misses"].(float64) != 1 {
		t.Fatalf("stats = %d %v", status, body)
	}
	if status, _ := do(t, mux, http.MethodPost, "/api/v1/cache/invalidate"); status != http.StatusOK {
		t.Errorf("invalidate status = %d", status)
	}

	disabled := setup(t, false)
	if _, body := do(t, disabled, http.MethodGet, "/api/v1/cache/stats"); body["status"] != "disabled" {
		t.Errorf("disabled stats = %v", body)
	}
	if status, _ := do(t, disabled, http.MethodPost, "/api/v1/cache/invalidate"); status != http.StatusServiceUnavailable {
		t.Errorf("disabled invalidate status = %d", status)
	}
}

func TestEngineStatsEndpoint(t *testing.T) {
	status, body := do(t, setup(t, false), http.MethodGet, "/api/v1/engine/stats")
	if status != http.StatusOK || body["documents"].(float64) != 2 || body["edges"].(float64) != 1 {
		t.Fatalf("stats = %d %v", status, body)
	}
}

func TestSearchCacheHeader(t *testing.T) {
	mux := setup(t, true)
	for _, want := range []string{"MISS", "HIT"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=dog", nil))
		if got := rec.Header().Get(CacheStatusHeader); got != want {
			t.Errorf("%s = %q, want %q", CacheStatusHeader, got, want)
		}
	}
	rec := httptest.NewRecorder()
	setup(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=dog", nil))
	if got := rec.Header().Get(CacheStatusHeader); got != "" {
		t.Errorf("uncached %s = %q, want empty", CacheStatusHeader, got)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name         string
		defaultLimit int
		raw          string
		want         int
		wantErr      bool
	}{
		{"default", 10, "", 10, false},
		{"default capped", 200, "", 50, false},
		{"explicit", 10, "7", 7, false},
		{"explicit capped", 10, "500", 50, false},
		{"zero", 10, "0", 0, true},
		{"garbage", 10, "ten", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{defaultLimit: tt.defaultLimit, maxResults: 50}
			got, err := h.parseLimit(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("limit = %d, want %d", got, tt.want)
			}
		})
	}
}
