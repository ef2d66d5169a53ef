// Package kafka publishes raw Weatherbit responses to a Kafka topic so they
// can be replayed or audited downstream.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-etl/internal/config"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of kafkago.Writer the archiver needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer archives raw forecast responses to Kafka.
// It implements pipeline.Archiver.
type Writer struct {
	writer messageWriter
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured raw topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaRawTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

// Archive publishes one raw response keyed by city name.
func (w *Writer) Archive(ctx context.Context, cityName string, payload []byte) error {
	msg := buildMessage(cityName, payload, w.clock.Now())
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish raw response for %s: %w", cityName, err)
	}
	w.logger.Debug("raw response published", "city", cityName, "bytes", len(payload))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// buildMessage wraps a raw response. Keying by city keeps one city's
// responses on a single partition.
func buildMessage(cityName string, payload []byte, fetchedAt time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(cityName),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(cityName)},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}
}
