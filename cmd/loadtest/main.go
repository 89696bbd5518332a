// Command loadtest drives concurrent search traffic against a running
// search service and reports throughput, latency percentiles, cache hit
// counts and zero-result responses.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/handler"
)

var defaultQueries = []string{
	"go programming language",
	"effective go",
	"goroutines and channels",
	"pipelines cancellation",
	"go modules",
	"rust ownership borrowing",
	"crate registry",
	"pagerank relevance",
	"search engine",
	"concurrency patterns",
	"documentation tutorials",
	"unmatched gibberish term",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results requested per query")
	queryFile := flag.String("queries", "", "file with one query per line; defaults to a built-in set")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		q, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = q
	}
	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
		Queries:     queries,
	}

	fmt.Println("=== Search Relevance Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n\n", len(cfg.Queries))

	start := time.Now()
	stats := run(cfg)
	stats.Report(os.Stdout, time.Since(start))
	if stats.Total() == 0 {
		fmt.Println("\nWARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				query := cfg.Queries[next%len(cfg.Queries)]
				next++
				o := search(ctx, client, cfg.BaseURL, query, cfg.Limit)
				if ctx.Err() != nil {
					return
				}
				stats.Record(o)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func search(ctx context.Context, client *http.Client, baseURL, query string, limit int) Outcome {
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", baseURL, url.QueryEscape(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Err: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Outcome{Latency: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	o := Outcome{
		Status:   resp.StatusCode,
		CacheHit: resp.Header.Get(handler.CacheStatusHeader) == "HIT",
	}
	if resp.StatusCode == http.StatusOK {
		var body struct {
			TotalHits int `json:"total_hits"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			o.Err = fmt.Errorf("decoding response: %w", err)
		}
		o.TotalHits = body.TotalHits
	}
	io.Copy(io.Discard, resp.Body)
	o.Latency = time.Since(start)
	return o
}
