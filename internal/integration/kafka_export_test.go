//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/flatscout/flatscout/internal/adapter/kafka"
	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/observability"
)

const testExportTopic = "test-listings"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("flatscout-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestExportRoundTrip publishes listings through the export writer and reads
// them back from the topic, verifying keys, headers, and payloads.
func TestExportRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testExportTopic)

	scraped := time.Date(2026, time.February, 1, 8, 30, 0, 0, time.UTC)
	rent := 450.0
	listings := []domain.Listing{
		{
			ListingID: "a1",
			URL:       "https://example.org/a1",
			Title:     "Room in Mitte",
			City:      "Berlin",
			Rent:      &rent,
			ScrapedAt: scraped,
			Location:  &domain.Coordinate{Lat: 52.53, Lon: 13.40},
		},
		{
			ListingID: "a2",
			URL:       "https://example.org/a2",
			Title:     "WG Zimmer",
			City:      "Hamburg",
			ScrapedAt: scraped,
		},
	}

	writer := kafka.NewWriter([]string{broker}, testExportTopic, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.ExportBatch(ctx, listings))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testExportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]domain.Listing, len(listings))
	headers := make(map[string]map[string]string, len(listings))
	for len(received) < len(listings) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from export topic")

		var listing domain.Listing
		require.NoError(t, json.Unmarshal(msg.Value, &listing))
		received[string(msg.Key)] = listing

		hs := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			hs[h.Key] = string(h.Value)
		}
		headers[string(msg.Key)] = hs
	}

	require.Contains(t, received, "a1")
	require.Contains(t, received, "a2")

	first := received["a1"]
	assert.Equal(t, "Room in Mitte", first.Title)
	require.NotNil(t, first.Rent)
	assert.Equal(t, 450.0, *first.Rent)
	require.NotNil(t, first.Location)
	assert.Equal(t, 52.53, first.Location.Lat)

	assert.Equal(t, "Berlin", headers["a1"]["city"])
	assert.Equal(t, "Hamburg", headers["a2"]["city"])
	assert.Equal(t, scraped.Format(time.RFC3339), headers["a1"]["scraped_at"])
}
