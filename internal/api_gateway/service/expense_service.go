package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// MaxListLimit caps a single page of expenses
const MaxListLimit = 1000

// ExpenseServiceImpl implements the ExpenseService interface
type ExpenseServiceImpl struct {
	store       ledger.Store
	splitter    *ledger.Splitter
	cascade     *ledger.CascadeUpdater
	idempotency idempotency.Store
	listLimit   int
	logger      *slog.Logger
}

// NewExpenseService creates a new expense service. keys may be nil, in which
// case idempotency keys are ignored.
func NewExpenseService(logger *slog.Logger, store ledger.Store, keys idempotency.Store, listLimit int) ExpenseService {
	return &ExpenseServiceImpl{
		store:       store,
		splitter:    ledger.NewSplitter(logger),
		cascade:     ledger.NewCascadeUpdater(logger),
		idempotency: keys,
		listLimit:   listLimit,
		logger:      logger,
	}
}

func (s *ExpenseServiceImpl) CreateExpense(ctx context.Context, input CreateExpenseInput) (*ledger.SplitResult, bool, error) {
	if input.Category == expense.CategorySettlement {
		return nil, false, shared.NewValidationError("category", expense.ErrSettlementCategory.Error())
	}
	exp, err := expense.NewExpense(input.UserID, input.Amount, input.Credit, input.Category, input.Note, input.Metadata)
	if err != nil {
		return nil, false, err
	}
	// Reject before the key is reserved so a bad request does not hold it
	if err := ledger.ValidateSplit(exp, input.GroupID, input.ParticipantIDs); err != nil {
		return nil, false, err
	}

	var result *ledger.SplitResult
	ids, replayed, err := runIdempotent(ctx, s.logger, s.idempotency, scopeCreateExpense, input.UserID, input.IdempotencyKey, func() ([]uuid.UUID, error) {
		var err error
		result, err = s.splitter.Split(ctx, s.store, exp, input.GroupID, input.ParticipantIDs)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{result.Expense.ID}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !replayed {
		return result, false, nil
	}

	if len(ids) == 0 {
		return nil, false, fmt.Errorf("idempotency key %q has no stored expense", input.IdempotencyKey)
	}
	result, err = s.loadSplit(ctx, input.UserID, ids[0])
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// loadSplit re-reads an expense and its debt records for a replayed create
func (s *ExpenseServiceImpl) loadSplit(ctx context.Context, userID, expenseID uuid.UUID) (*ledger.SplitResult, error) {
	exp, err := s.GetExpense(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Debts().Find(ctx, debt.Filter{ExpenseID: &expenseID})
	if err != nil {
		return nil, fmt.Errorf("failed to load debt records: %w", err)
	}
	return &ledger.SplitResult{Expense: exp, Records: records}, nil
}

func (s *ExpenseServiceImpl) GetExpense(ctx context.Context, userID, expenseID uuid.UUID) (*expense.Expense, error) {
	exp, err := s.store.Expenses().GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if exp.UserID != userID {
		return nil, expense.ErrExpenseNotFound{ExpenseID: expenseID}
	}
	return exp, nil
}

func (s *ExpenseServiceImpl) ListExpenses(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	if filter.Limit == 0 {
		filter.Limit = s.listLimit
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	expenses, err := s.store.Expenses().List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list expenses", "user_id", filter.UserID.String(), "error", err)
		return nil, err
	}
	if expenses == nil {
		expenses = []*expense.Expense{}
	}
	return expenses, nil
}

func (s *ExpenseServiceImpl) SumExpenses(ctx context.Context, filter expense.Filter) (decimal.Decimal, error) {
	filter.Limit, filter.Offset = 0, 0
	if err := validateFilter(filter); err != nil {
		return decimal.Zero, err
	}

	total, err := s.store.Expenses().Sum(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to sum expenses", "user_id", filter.UserID.String(), "error", err)
		return decimal.Zero, err
	}
	return total, nil
}

func (s *ExpenseServiceImpl) UpdateExpense(ctx context.Context, userID, expenseID uuid.UUID, changes expense.Changes) (*ledger.EditResult, error) {
	if _, err := s.GetExpense(ctx, userID, expenseID); err != nil {
		return nil, err
	}
	return s.cascade.ApplyEdit(ctx, s.store, expenseID, changes)
}

func (s *ExpenseServiceImpl) DeleteExpense(ctx context.Context, userID, expenseID uuid.UUID) (*ledger.DeleteResult, error) {
	if _, err := s.GetExpense(ctx, userID, expenseID); err != nil {
		return nil, err
	}
	return s.cascade.ApplyDelete(ctx, s.store, expenseID)
}

func validateFilter(filter expense.Filter) error {
	if filter.UserID == uuid.Nil {
		return shared.NewValidationError("user_id", "user id is required")
	}
	if filter.Limit < 0 || filter.Limit > MaxListLimit {
		return shared.NewValidationError("limit", fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	}
	if filter.Offset < 0 {
		return shared.NewValidationError("offset", "offset cannot be negative")
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return shared.NewValidationError("category", expense.ErrInvalidCategory.Error())
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return shared.NewValidationError("end_date", "end date must not be before start date")
	}
	return nil
}
