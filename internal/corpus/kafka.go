package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/resilience"
)

// snapshotReader is satisfied by *kafka.SnapshotReader.
type snapshotReader interface {
	Read(ctx context.Context, handler kafka.MessageHandler) (int, error)
	Close() error
}

// KafkaLoader replays a pages topic once. Messages carry one JSON Page each;
// a later message for the same URI replaces an earlier one.
type KafkaLoader struct {
	reader  snapshotReader
	workers int
	logger  *slog.Logger
}

func NewKafkaLoader(reader snapshotReader, workers int) *KafkaLoader {
	return &KafkaLoader{
		reader:  reader,
		workers: workers,
		logger:  slog.Default().With("component", "corpus-kafka"),
	}
}

func (l *KafkaLoader) Load(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	skipped := 0
	// A retried read resumes at the reader's current offset, so pages
	// accumulate across attempts.
	err := resilience.Retry(ctx, "read-pages-topic", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		_, err := l.reader.Read(ctx, func(_ context.Context, key, value []byte) error {
			p, err := kafka.DecodeJSON[Page](value)
			if err != nil {
				l.logger.Warn("skipping undecodable page", "key", string(key), "error", err)
				skipped++
				return nil
			}
			if p.URI == "" {
				p.URI = string(key)
			}
			pages = append(pages, &p)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading pages from kafka: %w", err)
	}
	if err := prepareAll(ctx, pages, l.workers); err != nil {
		return nil, err
	}
	l.logger.Info("pages topic loaded", "messages", len(pages), "skipped", skipped)
	return Dedupe(pages), nil
}

func (l *KafkaLoader) Close() error {
	return l.reader.Close()
}
