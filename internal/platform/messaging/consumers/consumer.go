package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// CorrelationIDHeader must match the header written by the producers
const CorrelationIDHeader = "x-correlation-id"

const (
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 30 * time.Second
	defaultHandlerTries  = 5
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type Consumer interface {
	Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error
	Close() error
}

// KafkaReader is the subset of *kafka.Reader the consumer calls
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer hands messages to a handler one at a time. A failing message
// is retried in place with exponential backoff so later offsets of the
// partition are never committed ahead of it.
type KafkaConsumer struct {
	reader       KafkaReader
	logger       *slog.Logger
	retryDelay   time.Duration
	handlerTries uint
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger: logger,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.ReconciliationTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: cfg.StartOffset,
		}),
		retryDelay:   defaultRetryDelay,
		handlerTries: defaultHandlerTries,
	}
}

// Subscribe starts consuming in a background goroutine that stops with ctx
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error {
	log := c.logger.With("topic", topic, "group_id", groupID)
	log.Info("Subscribed to Kafka topic")
	go c.consume(ctx, log, handler)
	return nil
}

func (c *KafkaConsumer) consume(ctx context.Context, log *slog.Logger, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Consumer stopped")
				return
			}
			log.Error("Failed to fetch message from Kafka", "error", err)
			if !sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		msgLog := log.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
		if err := c.handle(ctx, msgLog, msg, handler); err != nil {
			if ctx.Err() != nil {
				// left uncommitted, the group redelivers it after restart
				return
			}
			msgLog.Error("Giving up on message, committing past it", "error", err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			msgLog.Error("Failed to commit offset", "error", err)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, log *slog.Logger, msg kafka.Message, handler MessageHandler) error {
	msgCtx := ctx
	if id := correlationID(msg.Headers); id != "" {
		msgCtx = shared.WithCorrelationID(ctx, id)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryDelay
	policy.MaxInterval = max(c.retryDelay, defaultMaxRetryDelay)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, handler(msgCtx, msg.Key, msg.Value)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(max(c.handlerTries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("Message handler failed, retrying", "retry_in", next, "error", err)
		}),
	)
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func correlationID(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == CorrelationIDHeader {
			return string(h.Value)
		}
	}
	return ""
}

func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	if err := c.reader.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
