package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/tracing"
)

// BuildEngine loads the configured corpus and builds a relevance engine over
// it. obs may be nil. The load and build steps are traced and the span tree
// is logged once the build finishes, successfully or not.
func BuildEngine(ctx context.Context, cfg *config.Config, obs relevance.Observer) (*relevance.Engine, error) {
	ctx, root := tracing.StartSpan(ctx, "engine.build")
	root.SetAttr("source", cfg.Corpus.Source)
	defer func() {
		root.End()
		root.Log(slog.Default().With("component", "engine-trace"))
	}()

	pages, err := loadTraced(ctx, cfg)
	if err != nil {
		return nil, err
	}

	_, span := tracing.StartSpan(ctx, "relevance.build")
	defer span.End()
	engine, err := relevance.Build(Documents(pages), relevance.Options{
		Damping:        cfg.Rank.Damping,
		Epsilon:        cfg.Rank.Epsilon,
		IterationLimit: cfg.Rank.IterationLimit,
		Workers:        cfg.Rank.Workers,
		Observer:       obs,
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}
	stats := engine.Stats()
	span.SetAttr("documents", stats.Documents)
	span.SetAttr("edges", stats.Edges)
	span.SetAttr("terms", stats.Terms)
	span.SetAttr("pagerank_iterations", stats.Iterations)
	return engine, nil
}

func loadTraced(ctx context.Context, cfg *config.Config) ([]*Page, error) {
	ctx, span := tracing.StartSpan(ctx, "corpus.load")
	defer span.End()

	loader, err := NewLoader(ctx, cfg)
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}
	defer loader.Close()

	pages, err := loader.Load(ctx)
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	span.SetAttr("pages", len(pages))
	return pages, nil
}
