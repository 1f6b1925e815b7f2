package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

const deadLetterReasonHeader = "dlq-reason"

// DeadLetter is the envelope parked on the DLQ topic. Value keeps the
// undecodable message byte for byte so it can be replayed by hand.
type DeadLetter struct {
	Key           string    `json:"original_key"`
	Value         string    `json:"original_value"`
	Reason        string    `json:"dlq_reason"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ParkedAt      time.Time `json:"timestamp"`
}

// DLQProducer parks reconciliation messages the reconciler cannot decode
type DLQProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
	now    func() time.Time
}

// NewDLQProducer returns a nil producer when cfg.DLQTopic is empty
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("No DLQ topic configured, undecodable reconciliation events will be retried")
		return nil, nil
	}

	if err := ensureTopic(ctx, logger, cfg, cfg.DLQTopic); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger: logger,
		writer: newSyncWriter(cfg, cfg.DLQTopic, &kafka.LeastBytes{}),
		topic:  cfg.DLQTopic,
		now:    time.Now,
	}, nil
}

func (p *DLQProducer) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	letter := DeadLetter{
		Key:           key,
		Value:         string(originalMessageValue),
		Reason:        reason,
		CorrelationID: shared.CorrelationIDFromContext(ctx),
		ParkedAt:      p.clock().UTC(),
	}
	value, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	headers := append(correlationHeaders(ctx), kafka.Header{Key: deadLetterReasonHeader, Value: []byte(reason)})
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value, Headers: headers}); err != nil {
		p.logger.Error("Failed to park message on DLQ", "topic", p.topic, "key", key, "error", err)
		return fmt.Errorf("failed to publish to DLQ %s: %w", p.topic, err)
	}

	p.logger.Warn("Parked message on DLQ", "topic", p.topic, "key", key, "reason", reason)
	return nil
}

func (p *DLQProducer) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ writer for topic %s: %w", p.topic, err)
	}
	return nil
}
