// Command score builds the relevance engine once from the configured corpus
// and prints the most authoritative pages, and optionally the best matches
// for a query.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "JSON-lines corpus file; overrides the configured source")
	top := flag.Int("n", 10, "number of pages to print")
	query := flag.String("q", "", "optional query to score against the corpus")
	flag.Parse()
	if err := validateTop(*top); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Corpus.Source = config.SourceFile
		cfg.Corpus.Path = *corpusPath
	}
	logger.Setup(cfg.Logging.Level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *top, *query); err != nil {
		slog.Error("scoring failed", "error", err)
		os.Exit(1)
	}
}

// validateTop rejects -n values below 1. Zero prints no pages and a negative
// count would list the whole corpus.
func validateTop(n int) error {
	if n < 1 {
		return fmt.Errorf("-n must be at least 1, got %d", n)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, top int, query string) error {
	engine, err := corpus.BuildEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	stats := engine.Stats()
	fmt.Fprintf(w, "%d documents, %d links, %d terms; pagerank converged in %d iterations\n\n",
		stats.Documents, stats.Edges, stats.Terms, stats.Iterations)
	fmt.Fprintln(w, "RANK\tPAGERANK\tURI")
	for i, id := range engine.TopByPageRank(top) {
		pr, _ := engine.PageRank(id)
		fmt.Fprintf(w, "%d\t%.6f\t%s\n", i+1, pr, id)
	}

	if query != "" {
		exec, err := executor.New(engine, ranker.Weights{
			Relevance: cfg.Search.RelevanceWeight,
			Rank:      cfg.Search.RankWeight,
		}, cfg.Rank.Workers)
		if err != nil {
			return err
		}
		res, err := exec.Search(ctx, query, top)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nquery %q -> terms %v, %d hits\n", query, res.Terms, res.TotalHits)
		fmt.Fprintln(w, "RANK\tSCORE\tRELEVANCE\tPAGERANK\tURI")
		for i, hit := range res.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.6f\t%s\n", i+1, hit.Score, hit.Relevance, hit.PageRank, hit.DocID)
		}
	}
	return w.Flush()
}
