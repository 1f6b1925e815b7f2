// Package reconciliation describes the follow-up work raised when a primary
// write succeeded but dependent debt records could not be brought in line.
package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the operation that left debt records out of sync
type Kind string

const (
	KindSplitIncomplete   Kind = "SPLIT_INCOMPLETE"
	KindCascadeIncomplete Kind = "CASCADE_INCOMPLETE"
)

// Event is written to the outbox together with the primary write and later
// published for the reconciler.
type Event struct {
	EventID        uuid.UUID   `json:"event_id"`
	Kind           Kind        `json:"kind"`
	ExpenseID      uuid.UUID   `json:"expense_id"`
	GroupID        *uuid.UUID  `json:"group_id,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids,omitempty"`
	Reason         string      `json:"reason"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewEvent builds an event with a fresh id
func NewEvent(kind Kind, expenseID uuid.UUID, groupID *uuid.UUID, participantIDs []uuid.UUID, reason string) *Event {
	return &Event{
		EventID:        uuid.New(),
		Kind:           kind,
		ExpenseID:      expenseID,
		GroupID:        groupID,
		ParticipantIDs: participantIDs,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
}
