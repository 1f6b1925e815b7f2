package producers

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// ErrDLQDisabled is returned by a DLQProducer built without a DLQ topic
var ErrDLQDisabled = errors.New("DLQ producer not initialized")

// MessagePublisher is what the outbox relay needs from a producer
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that can never be handled
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of *kafka.Writer the producers call
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ KafkaWriter         = (*kafka.Writer)(nil)
	_ MessagePublisher    = (*ReconciliationEventProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
)
