package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// CorrelationIDHeader carries the request correlation id across Kafka hops
const CorrelationIDHeader = "x-correlation-id"

const topicLookupAttempts = 5

func correlationHeaders(ctx context.Context) []kafka.Header {
	id := shared.CorrelationIDFromContext(ctx)
	if id == "" {
		return nil
	}
	return []kafka.Header{{Key: CorrelationIDHeader, Value: []byte(id)}}
}

// topicConfig falls back to a single partition and replica for local brokers
func topicConfig(cfg *config.KafkaConfig, topic string) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

// ensureTopic creates topic when the broker does not report any partition for it.
// Partition reads are retried since a freshly started broker may not have
// elected a controller yet.
func ensureTopic(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := backoff.Retry(ctx, func() ([]kafka.Partition, error) {
		return conn.ReadPartitions(topic)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(2*time.Second)),
		backoff.WithMaxTries(topicLookupAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Reading topic partitions failed", "topic", topic, "retry_in", next, "error", err)
		}),
	)
	if err == nil && len(partitions) > 0 {
		logger.Debug("Kafka topic exists", "topic", topic, "partitions", len(partitions))
		return nil
	}

	tc := topicConfig(cfg, topic)
	logger.Info("Creating Kafka topic", "topic", topic, "partitions", tc.NumPartitions, "replication_factor", tc.ReplicationFactor)
	if err := conn.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}

// newSyncWriter waits for all in-sync replicas before WriteMessages returns
func newSyncWriter(cfg *config.KafkaConfig, topic string, balancer kafka.Balancer) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}
}
