package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{50, 5},
		{90, 9},
		{99, 10},
		{100, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty input should give 0")
	}
}

func TestStatsReport(t *testing.T) {
	s := NewStats()
	s.Record(Outcome{Latency: time.Millisecond, Status: 200, TotalHits: 3})
	s.Record(Outcome{Latency: 2 * time.Millisecond, Status: 200, CacheHit: true})
	s.Record(Outcome{Latency: 3 * time.Millisecond, Status: 400})
	s.Record(Outcome{Err: errors.New("refused")})

	var buf bytes.Buffer
	s.Report(&buf, time.Second)
	out := buf.String()
	for _, want := range []string{"Requests:", "4", "Failed:", "Cache hits:", "Zero-result:", "P99:", "400:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if s.failed.Load() != 2 || s.cacheHits.Load() != 1 || s.zeroResult.Load() != 1 {
		t.Errorf("failed=%d cache=%d zero=%d", s.failed.Load(), s.cacheHits.Load(), s.zeroResult.Load())
	}
}

func TestRunAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_hits":2,"results":[]}`))
	}))
	defer srv.Close()

	stats := run(Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		Limit:       5,
		Queries:     []string{"go"},
	})
	if stats.Total() == 0 {
		t.Fatal("no requests recorded")
	}
	if stats.failed.Load() != 0 {
		t.Errorf("failed = %d", stats.failed.Load())
	}
	if stats.cacheHits.Load() != stats.Total() {
		t.Errorf("cache hits = %d of %d", stats.cacheHits.Load(), stats.Total())
	}
}
