package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// ExpenseService defines the interface for expense operations
type ExpenseService interface {
	// CreateExpense stores an expense and splits it among the participants.
	// replayed is true when the idempotency key matched an earlier request.
	CreateExpense(ctx context.Context, input CreateExpenseInput) (result *ledger.SplitResult, replayed bool, err error)

	// GetExpense returns one of the user's expenses
	// Returns ErrExpenseNotFound if it doesn't exist or belongs to someone else
	GetExpense(ctx context.Context, userID, expenseID uuid.UUID) (*expense.Expense, error)

	ListExpenses(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error)
	SumExpenses(ctx context.Context, filter expense.Filter) (decimal.Decimal, error)

	// UpdateExpense edits an expense and cascades to its debt records
	UpdateExpense(ctx context.Context, userID, expenseID uuid.UUID, changes expense.Changes) (*ledger.EditResult, error)

	// DeleteExpense removes an expense together with its debt records
	DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) (*ledger.DeleteResult, error)
}

// SettlementService defines the interface for settlement operations
type SettlementService interface {
	// ListSettlementsForUser groups the debt records of groupIDs into logical
	// splits and computes the user's balance
	ListSettlementsForUser(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) (*ledger.Overview, error)

	RecordSettlement(ctx context.Context, req ledger.SettlementRequest, idempotencyKey string) (settlement *ledger.Settlement, replayed bool, err error)
}

// DebtService defines the interface for querying debt records and managing
// records that are not linked to an expense
type DebtService interface {
	CreateDebt(ctx context.Context, input CreateDebtInput) (*debt.DebtRecord, error)
	GetDebt(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error)
	FindDebts(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error)

	// UpdateDebt and DeleteDebt reject records derived from an expense
	UpdateDebt(ctx context.Context, id uuid.UUID, input UpdateDebtInput) (*debt.DebtRecord, error)
	DeleteDebt(ctx context.Context, id uuid.UUID) error
}

// ReconciliationService exposes the reconciler's task log
type ReconciliationService interface {
	ListByExpense(ctx context.Context, expenseID uuid.UUID, limit, offset int) ([]*reconciliation.Task, error)
}

// CreateExpenseInput carries a new expense and the users it is split with
type CreateExpenseInput struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Credit         bool
	Category       expense.Category
	Note           string
	Metadata       map[string]any
	GroupID        *uuid.UUID
	ParticipantIDs []uuid.UUID
	IdempotencyKey string
}

// CreateDebtInput describes a manual debt record
type CreateDebtInput struct {
	UserID     uuid.UUID
	GroupID    uuid.UUID
	CreditorID uuid.UUID
	DebtorID   uuid.UUID
	Amount     decimal.Decimal
	Note       string
}

// UpdateDebtInput reassigns a manual debt record
type UpdateDebtInput struct {
	CreditorID uuid.UUID
	DebtorID   uuid.UUID
	Amount     decimal.Decimal
}
