package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/shared-expense-ledger/internal/config"
)

// ReconciliationEventProducer relays outbox events to the reconciliation topic.
// Writes are synchronous so the outbox poller only marks a message processed
// once Kafka acknowledged it.
type ReconciliationEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewReconciliationEventProducer creates the producer and ensures the topic exists
func NewReconciliationEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconciliationEventProducer, error) {
	if cfg.ReconciliationTopic == "" {
		return nil, fmt.Errorf("kafka reconciliation topic is not configured")
	}

	if err := ensureTopic(ctx, logger, cfg, cfg.ReconciliationTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure reconciliation topic %s exists: %w", cfg.ReconciliationTopic, err)
	}

	return &ReconciliationEventProducer{
		logger: logger,
		// events of one expense stay ordered on one partition
		writer: newSyncWriter(cfg, cfg.ReconciliationTopic, &kafka.Hash{}),
		topic:  cfg.ReconciliationTopic,
	}, nil
}

// Publish writes value as JSON under key. A json.RawMessage is sent as is.
func (p *ReconciliationEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   jsonValue,
		Headers: correlationHeaders(ctx),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reconciliation event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish reconciliation event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconciliation event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ReconciliationEventProducer) Close() error {
	p.logger.Info("Closing reconciliation Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close reconciliation kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
