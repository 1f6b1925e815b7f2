package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// Repository persists outbox messages. Create must join the caller's
// transaction; the other methods are used by the poller outside of one.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Message, error)
}

// ErrMessageNotFound is keyed by ID or by EventID depending on the lookup
type ErrMessageNotFound struct {
	ID      int64
	EventID uuid.UUID
}

func (e ErrMessageNotFound) Error() string {
	if e.EventID != uuid.Nil {
		return fmt.Sprintf("no outbox message for event %s", e.EventID)
	}
	return fmt.Sprintf("outbox message %d not found", e.ID)
}

func (e ErrMessageNotFound) NotFound() bool {
	return true
}
