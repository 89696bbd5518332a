// Command seed copies a JSON-lines corpus into the pages Kafka topic or the
// pages Postgres table, so the searcher can load it from there.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/postgres"
)

const batchSize = 500

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	input := flag.String("in", "data/pages.jsonl", "JSON-lines corpus to publish")
	target := flag.String("target", config.SourceKafka, "destination: kafka or postgres")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(*input)
	if err != nil {
		slog.Error("failed to open corpus", "path", *input, "error", err)
		os.Exit(1)
	}
	pages, err := corpus.ReadJSONLines(f)
	f.Close()
	if err != nil {
		slog.Error("failed to read corpus", "path", *input, "error", err)
		os.Exit(1)
	}

	switch *target {
	case config.SourceKafka:
		err = publish(ctx, cfg, pages)
	case config.SourcePostgres:
		err = store(ctx, cfg, pages)
	default:
		err = fmt.Errorf("unknown target %q", *target)
	}
	if err != nil {
		slog.Error("seeding failed", "target", *target, "error", err)
		os.Exit(1)
	}
	slog.Info("corpus seeded", "target", *target, "pages", len(pages))
}

func publish(ctx context.Context, cfg *config.Config, pages []*corpus.Page) error {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Corpus.Topic)
	defer producer.Close()
	for start := 0; start < len(pages); start += batchSize {
		batch := pages[start:min(start+batchSize, len(pages))]
		events := make([]kafka.Event, len(batch))
		for i, p := range batch {
			events[i] = kafka.Event{Key: p.URI, Value: p}
		}
		if err := producer.PublishBatch(ctx, events); err != nil {
			return err
		}
		slog.Debug("batch published", "offset", start, "count", len(batch))
	}
	return nil
}

func store(ctx context.Context, cfg *config.Config, pages []*corpus.Page) error {
	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()
	return corpus.Store(ctx, client, cfg.Corpus.Table, pages)
}
