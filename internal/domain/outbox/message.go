package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// Message is a reconciliation event waiting in ledger_outbox to be relayed
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	EventType     reconciliation.Kind `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *reconciliation.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:     event.EventID,
		AggregateID: event.ExpenseID,
		EventType:   event.Kind,
		Payload:     payload,
		Status:      shared.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// Exhausted reports whether the relay attempt in progress is the last one
// allowed by maxAttempts.
func (m *Message) Exhausted(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}

// Event decodes the reconciliation event carried in the payload
func (m *Message) Event() (*reconciliation.Event, error) {
	var event reconciliation.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
