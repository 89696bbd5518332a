// Package kafka provides Kafka clients backed by segmentio/kafka-go. The
// producer serialises values as JSON; the snapshot reader replays a topic
// from its first offset and stops once the topic goes quiet, which is how a
// static corpus is pulled off a compacted pages topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/config"
)

// MessageHandler is invoked for each message in offset order.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// messageReader is the subset of *kafka.Reader the snapshot loop needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// SnapshotReader reads a topic once, start to finish, without a consumer
// group so every run sees the whole topic.
type SnapshotReader struct {
	reader      messageReader
	logger      *slog.Logger
	idleTimeout time.Duration
	maxMessages int
}

// NewSnapshotReader creates a reader for topic. Reading stops after
// idleTimeout without a new message, or after maxMessages (0 = unbounded).
func NewSnapshotReader(cfg config.KafkaConfig, topic string, idleTimeout time.Duration, maxMessages int) *SnapshotReader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return newSnapshotReader(r, topic, idleTimeout, maxMessages)
}

func newSnapshotReader(r messageReader, topic string, idleTimeout time.Duration, maxMessages int) *SnapshotReader {
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Second
	}
	return &SnapshotReader{
		reader:      r,
		logger:      slog.Default().With("component", "kafka-snapshot", "topic", topic),
		idleTimeout: idleTimeout,
		maxMessages: maxMessages,
	}
}

// Read feeds every message to handler until the topic is idle, the message
// cap is hit or ctx is cancelled. It returns the number of messages read. A
// handler error stops the read.
func (s *SnapshotReader) Read(ctx context.Context, handler MessageHandler) (int, error) {
	s.logger.Info("snapshot read started", "idle_timeout", s.idleTimeout, "max_messages", s.maxMessages)
	count := 0
	for s.maxMessages <= 0 || count < s.maxMessages {
		readCtx, cancel := context.WithTimeout(ctx, s.idleTimeout)
		msg, err := s.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return count, fmt.Errorf("reading snapshot: %w", ctx.Err())
			}
			if errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("topic idle, snapshot complete", "messages", count)
				return count, nil
			}
			return count, fmt.Errorf("reading snapshot: %w", err)
		}
		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			return count, fmt.Errorf("handling message at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		}
		count++
	}
	s.logger.Info("message cap reached, snapshot complete", "messages", count)
	return count, nil
}

func (s *SnapshotReader) Close() error {
	return s.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
