// Package kafka publishes imported listings to a Kafka topic so downstream
// consumers (alerting bots, analytics) see new listings as they arrive.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

// Writer produces listing messages to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the export topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// ExportBatch serializes and publishes listings in a single WriteMessages
// call for efficiency.
func (w *Writer) ExportBatch(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(listings))
	for i := range listings {
		msg, err := serializeToMessage(listings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.metrics.ListingsExported.Add(float64(len(listings)))
	w.logger.Debug("exported listings", "count", len(listings))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a listing into a Kafka message. The listing ID
// keys the message so re-imports land on the same partition.
func serializeToMessage(listing domain.Listing) (kafkago.Message, error) {
	data, err := json.Marshal(listing)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize listing: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(listing.ListingID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "city", Value: []byte(listing.City)},
			{Key: "scraped_at", Value: []byte(listing.ScrapedAt.Format(time.RFC3339))},
		},
	}, nil
}
