package debt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter selects debt records. Empty fields are ignored; results are ordered
// newest first.
type Filter struct {
	GroupIDs   []uuid.UUID
	CreditorID *uuid.UUID
	DebtorID   *uuid.UUID
	// InvolvedID matches records where the user is creditor or debtor
	InvolvedID *uuid.UUID
	ExpenseID  *uuid.UUID
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// Repository defines debt record persistence operations
type Repository interface {
	Create(ctx context.Context, record *DebtRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*DebtRecord, error)
	Find(ctx context.Context, filter Filter) ([]*DebtRecord, error)
	Update(ctx context.Context, record *DebtRecord) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateAmountByExpense sets the amount on every record of an expense and returns them
	UpdateAmountByExpense(ctx context.Context, expenseID uuid.UUID, amount decimal.Decimal) ([]*DebtRecord, error)

	// UpdateNoteByExpense sets the note on every record of an expense and returns them
	UpdateNoteByExpense(ctx context.Context, expenseID uuid.UUID, note string) ([]*DebtRecord, error)

	// DeleteByExpense removes every record of an expense and returns the removed rows
	DeleteByExpense(ctx context.Context, expenseID uuid.UUID) ([]*DebtRecord, error)
}

// ErrRecordNotFound indicates missing debt record
type ErrRecordNotFound struct {
	RecordID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "debt record not found: " + e.RecordID.String()
}

// NotFound marks the error as a missing resource
func (e ErrRecordNotFound) NotFound() bool {
	return true
}
