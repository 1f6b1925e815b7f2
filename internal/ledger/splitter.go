package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SplitResult is the outcome of creating an expense and its debt records
type SplitResult struct {
	Expense  *expense.Expense
	Records  []*debt.DebtRecord
	Warnings []shared.Warning
}

// Outcome reports whether every debt record was written
func (r *SplitResult) Outcome() shared.Outcome {
	return shared.OutcomeOf(r.Warnings)
}

// Splitter divides an expense evenly between the payer and participants
type Splitter struct {
	logger *slog.Logger
}

func NewSplitter(logger *slog.Logger) *Splitter {
	return &Splitter{logger: logger}
}

// PerPerson is the share of amount each of the k participants and the payer carries
func PerPerson(amount decimal.Decimal, participants int) decimal.Decimal {
	return amount.DivRound(decimal.NewFromInt(int64(participants+1)), shared.InternalPrecision)
}

// ValidateSplit checks that exp can be split between participantIDs in groupID
func ValidateSplit(exp *expense.Expense, groupID *uuid.UUID, participantIDs []uuid.UUID) error {
	if len(participantIDs) == 0 {
		return nil
	}
	if groupID == nil || *groupID == uuid.Nil {
		return shared.NewValidationError("group_id", "group is required when splitting with participants")
	}
	if exp.Credit {
		return shared.NewValidationError("credit", "income cannot be split")
	}
	if exp.IsSettlement() {
		return shared.NewValidationError("category", "settlements cannot be split")
	}

	seen := make(map[uuid.UUID]struct{}, len(participantIDs))
	for _, p := range participantIDs {
		if p == uuid.Nil {
			return shared.NewValidationError("participant_ids", "participant id is required")
		}
		if p == exp.UserID {
			return shared.NewValidationError("participant_ids", "payer cannot be a participant")
		}
		if _, dup := seen[p]; dup {
			return shared.NewValidationError("participant_ids", "duplicate participant "+p.String())
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Emit builds one debt record per participant, all stamped with at. It does
// not validate its input; see ValidateSplit.
func Emit(exp *expense.Expense, groupID uuid.UUID, participantIDs []uuid.UUID, at time.Time) []*debt.DebtRecord {
	if len(participantIDs) == 0 {
		return nil
	}

	perPerson := PerPerson(exp.Amount, len(participantIDs))
	expenseID := exp.ID
	records := make([]*debt.DebtRecord, 0, len(participantIDs))
	for _, participantID := range participantIDs {
		records = append(records, &debt.DebtRecord{
			ID:         uuid.New(),
			GroupID:    groupID,
			CreditorID: exp.UserID,
			DebtorID:   participantID,
			Amount:     perPerson,
			Note:       exp.Note,
			ExpenseID:  &expenseID,
			CreatedAt:  at,
			UpdatedAt:  at,
		})
	}
	return records
}

// Split stores exp and one debt record per participant. Only a failure to
// store the expense is returned as an error; a record that cannot be written
// becomes a warning and a reconciliation event is queued for the expense.
func (s *Splitter) Split(ctx context.Context, store Store, exp *expense.Expense, groupID *uuid.UUID, participantIDs []uuid.UUID) (*SplitResult, error) {
	if err := ValidateSplit(exp, groupID, participantIDs); err != nil {
		return nil, err
	}

	logger := s.logger.With("expense_id", exp.ID.String())
	if correlationID := shared.CorrelationIDFromContext(ctx); correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	var result *SplitResult
	err := store.InTx(ctx, func(tx Store) error {
		result = &SplitResult{Expense: exp}
		if len(participantIDs) > 0 {
			g := *groupID
			exp.GroupID = &g
		}

		if err := tx.Expenses().Create(ctx, exp); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		if len(participantIDs) == 0 {
			return nil
		}

		var failed []uuid.UUID
		for _, record := range Emit(exp, *groupID, participantIDs, exp.CreatedAt) {
			r := record
			err := tx.InTx(ctx, func(sp Store) error {
				return sp.Debts().Create(ctx, r)
			})
			if err != nil {
				logger.Warn("Failed to create debt record for participant",
					"participant_id", r.DebtorID.String(), "error", err)
				result.Warnings = append(result.Warnings, shared.Warning{
					Operation: shared.OperationCreateDebtRecord,
					Subject:   r.DebtorID.String(),
					Message:   err.Error(),
				})
				failed = append(failed, r.DebtorID)
				continue
			}
			result.Records = append(result.Records, r)
		}

		if len(failed) == 0 {
			return nil
		}
		reason := fmt.Sprintf("%d of %d debt records failed", len(failed), len(participantIDs))
		if w := queueRepair(ctx, tx, logger, reconciliation.KindSplitIncomplete, exp, participantIDs, reason); w != nil {
			result.Warnings = append(result.Warnings, *w)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to split expense", "error", err)
		return nil, err
	}

	if len(result.Warnings) > 0 {
		logger.Warn("Expense created, split incomplete", "warnings", len(result.Warnings))
	} else {
		logger.Info("Expense created", "records", len(result.Records))
	}
	return result, nil
}

// queueRepair writes a reconciliation event for exp in a nested unit of work.
// When that write fails too the primary write still stands; the failure is
// logged and handed back as a warning.
func queueRepair(ctx context.Context, tx Store, logger *slog.Logger, kind reconciliation.Kind, exp *expense.Expense, participantIDs []uuid.UUID, reason string) *shared.Warning {
	err := tx.InTx(ctx, func(sp Store) error {
		return enqueueReconciliation(ctx, sp, kind, exp, participantIDs, reason)
	})
	if err == nil {
		return nil
	}

	logger.Error("Failed to queue reconciliation, ledger left inconsistent",
		"kind", string(kind), "reason", reason, "error", err)
	return &shared.Warning{
		Operation: shared.OperationEnqueueRepair,
		Subject:   exp.ID.String(),
		Message:   err.Error(),
	}
}

func enqueueReconciliation(ctx context.Context, tx Store, kind reconciliation.Kind, exp *expense.Expense, participantIDs []uuid.UUID, reason string) error {
	event := reconciliation.NewEvent(kind, exp.ID, exp.GroupID, participantIDs, reason)
	event.CorrelationID = shared.CorrelationIDFromContext(ctx)

	message, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build reconciliation message: %w", err)
	}
	if err := tx.Outbox().Create(ctx, message); err != nil {
		return fmt.Errorf("failed to enqueue reconciliation event: %w", err)
	}
	return nil
}
