package corpus

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/postgres"
)

// Loader produces the full page set in one call.
type Loader interface {
	Load(ctx context.Context) ([]*Page, error)
	Close() error
}

// NewLoader returns the loader selected by cfg.Corpus.Source. Workers bounds
// tokenization parallelism.
func NewLoader(ctx context.Context, cfg *config.Config) (Loader, error) {
	workers := cfg.Rank.Workers
	switch cfg.Corpus.Source {
	case config.SourceFile:
		return &FileLoader{Path: cfg.Corpus.Path, Workers: workers}, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("creating postgres loader: %w", err)
		}
		return NewPostgresLoader(client, cfg.Corpus.Table, workers), nil
	case config.SourceKafka:
		reader := kafka.NewSnapshotReader(cfg.Kafka, cfg.Corpus.Topic, cfg.Corpus.IdleTimeout, cfg.Corpus.MaxPages)
		return NewKafkaLoader(reader, workers), nil
	default:
		return nil, fmt.Errorf("unknown corpus source %q", cfg.Corpus.Source)
	}
}
