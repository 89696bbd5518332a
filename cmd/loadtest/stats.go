package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

// Stats aggregates results from every load worker.
type Stats struct {
	total      atomic.Int64
	failed     atomic.Int64
	cacheHits  atomic.Int64
	zeroResult atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 1<<16),
		statuses:  make(map[int]int64),
	}
}

// Outcome is what one search request produced.
type Outcome struct {
	Latency   time.Duration
	Status    int
	Err       error
	CacheHit  bool
	TotalHits int
}

func (s *Stats) Record(o Outcome) {
	s.total.Add(1)
	if o.Err != nil {
		s.failed.Add(1)
		return
	}
	if o.Status < 200 || o.Status >= 300 {
		s.failed.Add(1)
	} else {
		if o.CacheHit {
			s.cacheHits.Add(1)
		}
		if o.TotalHits == 0 {
			s.zeroResult.Add(1)
		}
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, o.Latency)
	s.statuses[o.Status]++
	s.mu.Unlock()
}

func (s *Stats) Total() int64 { return s.total.Load() }

// Report writes a summary of everything recorded over elapsed.
func (s *Stats) Report(out io.Writer, elapsed time.Duration) {
	total := s.total.Load()
	failed := s.failed.Load()

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Requests:\t%d\n", total)
	fmt.Fprintf(w, "Failed:\t%d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Error rate:\t%.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:\t%.2f\n", float64(total)/elapsed.Seconds())
		fmt.Fprintf(w, "Cache hits:\t%d\n", s.cacheHits.Load())
		fmt.Fprintf(w, "Zero-result:\t%d\n", s.zeroResult.Load())
	}

	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	codes := make([]int, 0, len(s.statuses))
	for code := range s.statuses {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.statuses))
	for code, n := range s.statuses {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		mean, stddev := meanStdDev(latencies)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:\t%s\n", latencies[0])
		fmt.Fprintf(w, "Mean:\t%s\n", mean)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%.0f:\t%s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(w, "Max:\t%s\n", latencies[len(latencies)-1])
		fmt.Fprintf(w, "StdDev:\t%s\n", stddev)
	}

	slices.Sort(codes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "%d:\t%d\n", code, counts[code])
	}
	w.Flush()
}

func meanStdDev(latencies []time.Duration) (time.Duration, time.Duration) {
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	mean := sum / time.Duration(len(latencies))
	var sq float64
	for _, l := range latencies {
		d := float64(l - mean)
		sq += d * d
	}
	return mean, time.Duration(math.Sqrt(sq / float64(len(latencies))))
}

// percentile expects sorted input and uses the nearest-rank method.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
