package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/platform/messaging/producers"
)

// EventRelay publishes one outbox message to Kafka
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// EventRelayImpl implements EventRelay
type EventRelayImpl struct {
	outboxRepo outbox.Repository
	publisher  producers.MessagePublisher
	logger     *slog.Logger
}

func NewEventRelay(
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) EventRelay {
	return &EventRelayImpl{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay publishes the message keyed by expense id and marks it PROCESSED.
// A payload that cannot be decoded is marked FAILED_TO_PUBLISH right away.
func (r *EventRelayImpl) Relay(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		r.logger.Error("Failed to decode reconciliation event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			r.logger.Error("Also failed to mark outbox message FAILED_TO_PUBLISH", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
		ctx = shared.WithCorrelationID(ctx, event.CorrelationID)
	}

	key := message.AggregateID.String()
	if err := r.publisher.Publish(ctx, key, json.RawMessage(message.Payload)); err != nil {
		return fmt.Errorf("publish outbox %d failed: %w", message.ID, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// The event will be published again; the reconciler skips resolved events.
		logger.Error("Failed to mark outbox message PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		return fmt.Errorf("published %s, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Info("Relayed reconciliation event",
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"kind", string(message.EventType),
		"expense_id", key,
	)
	return nil
}
