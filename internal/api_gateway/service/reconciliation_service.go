package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

const defaultTaskLimit = 50

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	tasks  reconciliation.Repository
	logger *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, tasks reconciliation.Repository) ReconciliationService {
	return &ReconciliationServiceImpl{
		tasks:  tasks,
		logger: logger,
	}
}

func (s *ReconciliationServiceImpl) ListByExpense(ctx context.Context, expenseID uuid.UUID, limit, offset int) ([]*reconciliation.Task, error) {
	if expenseID == uuid.Nil {
		return nil, shared.NewValidationError("expense_id", "expense id is required")
	}
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	if limit > MaxListLimit {
		return nil, shared.NewValidationError("limit", "limit is too large")
	}
	if offset < 0 {
		return nil, shared.NewValidationError("offset", "offset cannot be negative")
	}

	tasks, err := s.tasks.GetByExpenseID(ctx, expenseID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list reconciliation tasks", "expense_id", expenseID.String(), "error", err)
		return nil, err
	}
	return tasks, nil
}
