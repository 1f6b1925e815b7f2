package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
)

type RepairServiceImpl struct {
	store     ledger.Store
	rebuilder DebtRebuilder
	tracker   TaskTracker
	logger    *slog.Logger
}

func NewRepairService(
	store ledger.Store,
	rebuilder DebtRebuilder,
	tracker TaskTracker,
	logger *slog.Logger,
) RepairService {
	return &RepairServiceImpl{
		store:     store,
		rebuilder: rebuilder,
		tracker:   tracker,
		logger:    logger,
	}
}

// Repair rebuilds the debt records of the event's expense.
// A nil return means the event is done with and its offset may be committed.
func (s *RepairServiceImpl) Repair(ctx context.Context, event *reconciliation.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
		ctx = shared.WithCorrelationID(ctx, event.CorrelationID)
	}

	logger.Info("Repairing expense",
		"event_id", event.EventID.String(),
		"kind", string(event.Kind),
		"expense_id", event.ExpenseID.String(),
	)

	task, err := s.tracker.Start(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to track reconciliation event %s: %w", event.EventID, err)
	}
	if task.Status == reconciliation.StatusResolved {
		logger.Info("Reconciliation event already resolved, skipping",
			"event_id", event.EventID.String(),
			"attempts", task.Attempts,
		)
		return nil
	}

	records, err := s.rebuilder.Rebuild(ctx, s.store, event.ExpenseID, event.ParticipantIDs)
	switch {
	case err == nil:
		logger.Info("Expense repaired",
			"event_id", event.EventID.String(),
			"expense_id", event.ExpenseID.String(),
			"records", len(records),
		)
		return s.tracker.Resolve(ctx, event, "")

	case shared.IsNotFound(err):
		// Deleting the expense already removed what was left to repair.
		logger.Info("Expense no longer exists, nothing to repair",
			"event_id", event.EventID.String(),
			"expense_id", event.ExpenseID.String(),
		)
		return s.tracker.Resolve(ctx, event, "expense deleted")

	case shared.IsValidation(err):
		logger.Warn("Expense can no longer be split, giving up",
			"event_id", event.EventID.String(),
			"expense_id", event.ExpenseID.String(),
			"error", err,
		)
		return s.tracker.Fail(ctx, event, err.Error())
	}

	logger.Error("Failed to repair expense",
		"event_id", event.EventID.String(),
		"expense_id", event.ExpenseID.String(),
		"error", err,
	)
	if failErr := s.tracker.Fail(ctx, event, err.Error()); failErr != nil {
		logger.Error("Failed to record repair failure", "event_id", event.EventID.String(), "error", failErr)
	}
	return fmt.Errorf("repairing expense %s failed: %w", event.ExpenseID, err)
}
