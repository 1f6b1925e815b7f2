package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status tracks a repair task
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusResolved Status = "RESOLVED"
	StatusFailed   Status = "FAILED"
)

// Task is the reconciler's record of one event, kept in MongoDB
type Task struct {
	EventID       uuid.UUID  `json:"event_id" bson:"event_id"`
	Kind          Kind       `json:"kind" bson:"kind"`
	ExpenseID     uuid.UUID  `json:"expense_id" bson:"expense_id"`
	Status        Status     `json:"status" bson:"status"`
	Attempts      int        `json:"attempts" bson:"attempts"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// NewTask starts tracking an event
func NewTask(event *Event) *Task {
	return &Task{
		EventID:       event.EventID,
		Kind:          event.Kind,
		ExpenseID:     event.ExpenseID,
		Status:        StatusPending,
		CorrelationID: event.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// Repository stores reconciliation tasks
type Repository interface {
	// Upsert creates the task or bumps its attempt counter when it already exists
	Upsert(ctx context.Context, task *Task) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Task, error)
	GetByExpenseID(ctx context.Context, expenseID uuid.UUID, limit, offset int) ([]*Task, error)
	UpdateStatus(ctx context.Context, eventID uuid.UUID, status Status, reason string) error
}

// ErrTaskNotFound indicates missing reconciliation task
type ErrTaskNotFound struct {
	EventID uuid.UUID
}

func (e ErrTaskNotFound) Error() string {
	return "reconciliation task not found: " + e.EventID.String()
}

func (e ErrTaskNotFound) Is(target error) bool {
	_, ok := target.(ErrTaskNotFound)
	return ok
}

// NotFound marks the error as a missing resource
func (e ErrTaskNotFound) NotFound() bool {
	return true
}
