package expense

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows expense listings for one owner
type Filter struct {
	UserID    uuid.UUID
	Category  *Category
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
	OrderDesc bool
}

// Repository defines expense persistence operations
type Repository interface {
	Create(ctx context.Context, exp *Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, filter Filter) ([]*Expense, error)
	Sum(ctx context.Context, filter Filter) (decimal.Decimal, error)

	// Update uses optimistic locking on Version
	Update(ctx context.Context, exp *Expense) error

	// LockForUpdate acquires a row lock for the rest of the enclosing transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Expense, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ErrExpenseNotFound indicates missing expense
type ErrExpenseNotFound struct {
	ExpenseID uuid.UUID
}

func (e ErrExpenseNotFound) Error() string {
	return "expense not found: " + e.ExpenseID.String()
}

// NotFound marks the error as a missing resource
func (e ErrExpenseNotFound) NotFound() bool {
	return true
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ExpenseID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for expense: " + e.ExpenseID.String()
}
