package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// SplitState tells whether an expense currently has debt records
type SplitState string

const (
	StateUnsplit SplitState = "UNSPLIT"
	StateSplit   SplitState = "SPLIT"
)

func stateOf(records []*debt.DebtRecord) SplitState {
	if len(records) > 0 {
		return StateSplit
	}
	return StateUnsplit
}

// EditResult is the outcome of editing an expense
type EditResult struct {
	Expense  *expense.Expense
	Records  []*debt.DebtRecord
	State    SplitState
	Warnings []shared.Warning
}

// Outcome reports whether the debt records follow the edited expense
func (r *EditResult) Outcome() shared.Outcome {
	return shared.OutcomeOf(r.Warnings)
}

// DeleteResult lists what a delete removed
type DeleteResult struct {
	ExpenseID        uuid.UUID
	RemovedRecordIDs []uuid.UUID
}

// CascadeDeleteError reports a delete that was rolled back, with the records
// that were removed and those that remain.
type CascadeDeleteError struct {
	ExpenseID uuid.UUID
	Removed   []uuid.UUID
	Remaining []uuid.UUID
	Err       error
}

func (e *CascadeDeleteError) Error() string {
	return fmt.Sprintf("cascade delete of expense %s failed (%d records removed, %d remaining): %v",
		e.ExpenseID, len(e.Removed), len(e.Remaining), e.Err)
}

func (e *CascadeDeleteError) Unwrap() error {
	return e.Err
}

// CascadeUpdater keeps debt records in line with the expense they came from
type CascadeUpdater struct {
	logger *slog.Logger
}

func NewCascadeUpdater(logger *slog.Logger) *CascadeUpdater {
	return &CascadeUpdater{logger: logger}
}

// ApplyEdit updates the expense and propagates the change to its records.
// When propagation fails the expense update is kept, the records are left as
// they were and a warning plus a reconciliation event are produced.
func (c *CascadeUpdater) ApplyEdit(ctx context.Context, store Store, expenseID uuid.UUID, changes expense.Changes) (*EditResult, error) {
	if err := changes.Validate(); err != nil {
		return nil, err
	}

	logger := c.logger.With("expense_id", expenseID.String())
	if correlationID := shared.CorrelationIDFromContext(ctx); correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	var result *EditResult
	err := store.InTx(ctx, func(tx Store) error {
		exp, err := tx.Expenses().LockForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.IsSettlement() {
			return shared.NewValidationError("category", "settlement expenses cannot be edited")
		}

		linked, err := tx.Debts().Find(ctx, debt.Filter{ExpenseID: &expenseID})
		if err != nil {
			return fmt.Errorf("failed to load debt records: %w", err)
		}

		amountChanged := changes.AmountChanged(exp.Amount)
		noteChanged := changes.NoteChanged(exp.Note)

		updated := *exp
		updated.Apply(changes)
		if err := c.validate(&updated, changes, linked); err != nil {
			return err
		}

		if err := tx.Expenses().Update(ctx, &updated); err != nil {
			return err
		}
		result = &EditResult{Expense: &updated}

		var records []*debt.DebtRecord
		cascadeErr := tx.InTx(ctx, func(sp Store) error {
			var err error
			switch {
			case changes.ReplacesParticipants():
				records, err = replaceRecords(ctx, sp, &updated, changes.ParticipantIDs, time.Now().UTC())
			case len(linked) > 0 && (amountChanged || noteChanged):
				records, err = updateRecords(ctx, sp, &updated, linked, amountChanged, noteChanged)
			default:
				records = linked
			}
			return err
		})
		if cascadeErr == nil {
			result.Records = records
			result.State = stateOf(records)
			return nil
		}

		logger.Warn("Expense updated, cascade to debt records failed", "error", cascadeErr)
		result.Records = linked
		result.State = stateOf(linked)
		result.Warnings = append(result.Warnings, shared.Warning{
			Operation: shared.OperationCascadeUpdate,
			Subject:   expenseID.String(),
			Message:   cascadeErr.Error(),
		})

		target := changes.ParticipantIDs
		if !changes.ReplacesParticipants() {
			target = debt.DistinctDebtors(linked)
		}
		if w := queueRepair(ctx, tx, logger, reconciliation.KindCascadeIncomplete, &updated, target, cascadeErr.Error()); w != nil {
			result.Warnings = append(result.Warnings, *w)
		}
		return nil
	})
	if err != nil {
		if !shared.IsValidation(err) && !shared.IsNotFound(err) {
			logger.Error("Failed to update expense", "error", err)
		}
		return nil, err
	}

	logger.Info("Expense updated", "version", result.Expense.Version, "state", string(result.State))
	return result, nil
}

func (c *CascadeUpdater) validate(updated *expense.Expense, changes expense.Changes, linked []*debt.DebtRecord) error {
	if changes.ReplacesParticipants() {
		return ValidateSplit(updated, updated.GroupID, changes.ParticipantIDs)
	}
	if len(linked) > 0 && updated.Credit {
		return shared.NewValidationError("credit", "a split expense cannot become income")
	}
	return nil
}

// ApplyDelete removes the expense and every record linked to it in one
// transaction.
func (c *CascadeUpdater) ApplyDelete(ctx context.Context, store Store, expenseID uuid.UUID) (*DeleteResult, error) {
	logger := c.logger.With("expense_id", expenseID.String())

	var (
		linked  []*debt.DebtRecord
		removed []*debt.DebtRecord
	)
	err := store.InTx(ctx, func(tx Store) error {
		linked, removed = nil, nil
		exp, err := tx.Expenses().LockForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if exp.IsSettlement() {
			return shared.NewValidationError("category", "settlement expenses cannot be deleted")
		}

		linked, err = tx.Debts().Find(ctx, debt.Filter{ExpenseID: &expenseID})
		if err != nil {
			return fmt.Errorf("failed to load debt records: %w", err)
		}

		removed, err = tx.Debts().DeleteByExpense(ctx, expenseID)
		if err != nil {
			return fmt.Errorf("failed to delete debt records: %w", err)
		}

		return tx.Expenses().Delete(ctx, expenseID)
	})
	if err != nil {
		var notFound expense.ErrExpenseNotFound
		if (errors.As(err, &notFound) || shared.IsValidation(err)) && linked == nil {
			return nil, err
		}
		logger.Error("Failed to delete expense, rolled back", "error", err, "remaining_records", len(linked))
		return nil, &CascadeDeleteError{
			ExpenseID: expenseID,
			Remaining: debt.IDs(linked),
			Err:       err,
		}
	}

	logger.Info("Expense deleted", "removed_records", len(removed))
	return &DeleteResult{ExpenseID: expenseID, RemovedRecordIDs: debt.IDs(removed)}, nil
}

// replaceRecords drops the expense's records and splits it again
func replaceRecords(ctx context.Context, tx Store, exp *expense.Expense, participantIDs []uuid.UUID, at time.Time) ([]*debt.DebtRecord, error) {
	if _, err := tx.Debts().DeleteByExpense(ctx, exp.ID); err != nil {
		return nil, fmt.Errorf("failed to delete debt records: %w", err)
	}
	if len(participantIDs) == 0 || exp.GroupID == nil {
		return nil, nil
	}

	records := Emit(exp, *exp.GroupID, participantIDs, at)
	for _, r := range records {
		if err := tx.Debts().Create(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to create debt record for %s: %w", r.DebtorID, err)
		}
	}
	return records, nil
}

// updateRecords rewrites amount and/or note in place on the linked records
func updateRecords(ctx context.Context, tx Store, exp *expense.Expense, linked []*debt.DebtRecord, amountChanged, noteChanged bool) ([]*debt.DebtRecord, error) {
	records := linked
	var err error
	if amountChanged {
		perPerson := PerPerson(exp.Amount, len(debt.DistinctDebtors(linked)))
		records, err = tx.Debts().UpdateAmountByExpense(ctx, exp.ID, perPerson)
		if err != nil {
			return nil, fmt.Errorf("failed to update debt record amounts: %w", err)
		}
	}
	if noteChanged {
		records, err = tx.Debts().UpdateNoteByExpense(ctx, exp.ID, exp.Note)
		if err != nil {
			return nil, fmt.Errorf("failed to update debt record notes: %w", err)
		}
	}
	return records, nil
}

// Rebuild replaces the records of an expense from its current amount, note
// and group. An empty participantIDs keeps the current debtors; an expense
// without a group ends up with no records.
func (c *CascadeUpdater) Rebuild(ctx context.Context, store Store, expenseID uuid.UUID, participantIDs []uuid.UUID) ([]*debt.DebtRecord, error) {
	var records []*debt.DebtRecord
	err := store.InTx(ctx, func(tx Store) error {
		exp, err := tx.Expenses().LockForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}

		target := participantIDs
		if exp.GroupID == nil {
			target = nil
		} else if len(target) == 0 {
			linked, err := tx.Debts().Find(ctx, debt.Filter{ExpenseID: &expenseID})
			if err != nil {
				return fmt.Errorf("failed to load debt records: %w", err)
			}
			target = debt.DistinctDebtors(linked)
		}

		if err := ValidateSplit(exp, exp.GroupID, target); err != nil {
			return err
		}

		records, err = replaceRecords(ctx, tx, exp, target, time.Now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Rebuilt debt records", "expense_id", expenseID.String(), "records", len(records))
	return records, nil
}
