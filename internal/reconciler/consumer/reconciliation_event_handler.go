package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/platform/messaging/producers"
	"github.com/shared-expense-ledger/internal/reconciler/service"
)

// ReconciliationEventHandler feeds reconciliation events from Kafka to the repair service
type ReconciliationEventHandler struct {
	repairService service.RepairService
	producer      producers.DeadLetterPublisher
	logger        *slog.Logger
}

func NewReconciliationEventHandler(
	logger *slog.Logger,
	repairService service.RepairService,
	producer producers.DeadLetterPublisher,
) *ReconciliationEventHandler {
	return &ReconciliationEventHandler{
		repairService: repairService,
		producer:      producer,
		logger:        logger,
	}
}

// HandleMessage decodes one event and repairs its expense. Returning nil
// commits the offset.
func (h *ReconciliationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event reconciliation.Event
	if err := decodeEvent(value, &event); err != nil {
		h.logger.Error("Failed to decode reconciliation event from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.deadLetter(ctx, key, value, err)
	}

	if event.CorrelationID == "" {
		event.CorrelationID = shared.CorrelationIDFromContext(ctx)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received reconciliation event",
		"event_id", event.EventID.String(),
		"kind", string(event.Kind),
		"expense_id", event.ExpenseID.String(),
		"reason", event.Reason,
	)

	if err := h.repairService.Repair(ctx, &event); err != nil {
		logger.Error("Failed to repair expense",
			"event_id", event.EventID.String(),
			"expense_id", event.ExpenseID.String(),
			"error", err,
		)
		return fmt.Errorf("reconciliation event %s failed: %w", event.EventID.String(), err)
	}
	return nil
}

func decodeEvent(value []byte, event *reconciliation.Event) error {
	if err := json.Unmarshal(value, event); err != nil {
		return err
	}
	if event.EventID == uuid.Nil || event.ExpenseID == uuid.Nil {
		return fmt.Errorf("event_id and expense_id are required")
	}
	switch event.Kind {
	case reconciliation.KindSplitIncomplete, reconciliation.KindCascadeIncomplete:
		return nil
	}
	return fmt.Errorf("unknown event kind %q", event.Kind)
}

// deadLetter parks an undecodable message. The offset is only committed when
// the DLQ accepted it.
func (h *ReconciliationEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	if h.producer != nil {
		reason := fmt.Sprintf("undecodable reconciliation event: %s", cause.Error())
		if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", err,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("failed to decode message value: %w", cause)
}
