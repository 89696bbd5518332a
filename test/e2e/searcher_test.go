// Package e2e contains end-to-end tests against a running search service,
// typically started with
//
//	go run ./cmd/searcher -config configs/development.yaml
//
// Every test skips when the service is unreachable.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func searcherURL() string {
	if v := os.Getenv("E2E_SEARCHER_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

var client = &http.Client{Timeout: 5 * time.Second}

func get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := client.Get(searcherURL() + path)
	if err != nil {
		t.Skipf("search service unavailable: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("GET %s: decoding %q: %v", path, body, err)
		}
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			if status := get(t, path, nil); status != http.StatusOK {
				t.Errorf("status = %d, want 200", status)
			}
		})
	}
}

func TestSearchRoundTrip(t *testing.T) {
	var result struct {
		Terms     []string `json:"terms"`
		TotalHits int      `json:"total_hits"`
		Results   []struct {
			DocID     string  `json:"doc_id"`
			Score     float64 `json:"score"`
			Relevance float64 `json:"relevance"`
			PageRank  float64 `json:"pagerank"`
		} `json:"results"`
	}
	if status := get(t, "/api/v1/search?limit=5&q="+url.QueryEscape("go concurrency"), &result); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	t.Logf("terms=%v total_hits=%d returned=%d", result.Terms, result.TotalHits, len(result.Results))
	if len(result.Results) > 5 {
		t.Errorf("returned %d results, limit was 5", len(result.Results))
	}
	for i, r := range result.Results {
		if r.Relevance <= 0 {
			t.Errorf("result %s has relevance %v; zero-relevance pages are not hits", r.DocID, r.Relevance)
		}
		if i > 0 && r.Score > result.Results[i-1].Score {
			t.Errorf("results not sorted at %d", i)
		}
		var pr struct {
			PageRank float64 `json:"pagerank"`
		}
		get(t, "/api/v1/pagerank?uri="+url.QueryEscape(r.DocID), &pr)
		if pr.PageRank != r.PageRank {
			t.Errorf("%s: search pagerank %v, endpoint %v", r.DocID, r.PageRank, pr.PageRank)
		}
	}
}

func TestEngineStats(t *testing.T) {
	var stats map[string]float64
	if status := get(t, "/api/v1/engine/stats", &stats); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	t.Logf("engine stats: %v", stats)
	if stats["documents"] < 1 {
		t.Error("engine reports no documents")
	}
}

func TestCacheStats(t *testing.T) {
	var stats map[string]any
	if status := get(t, "/api/v1/cache/stats", &stats); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if stats["status"] == "disabled" {
		t.Log("cache is disabled")
		return
	}
	for _, field := range []string{"hits", "misses", "total", "hit_rate"} {
		if _, ok := stats[field]; !ok {
			t.Errorf("missing field %s", field)
		}
	}
}
