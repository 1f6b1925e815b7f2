package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/data/memory"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascadeUpdater_ApplyEdit(t *testing.T) {
	ctx := context.Background()
	cascade := ledger.NewCascadeUpdater(newTestLogger())

	t.Run("amount change rescales every record", func(t *testing.T) {
		store := memory.NewStore()
		participants := users(3)
		split := splitExpense(t, store, uuid.New(), uuid.New(), "100", participants...)
		before := recordsOf(t, store, split.Expense.ID)

		amount := dec("200")
		result, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{Amount: &amount})

		require.NoError(t, err)
		assert.Equal(t, shared.OutcomeSuccess, result.Outcome())
		assert.Equal(t, ledger.StateSplit, result.State)
		assert.Equal(t, 2, result.Expense.Version)

		after := recordsOf(t, store, split.Expense.ID)
		require.Len(t, after, 3)
		for _, r := range after {
			assert.True(t, r.Amount.Equal(dec("50")), "got %s", r.Amount)
		}
		assert.ElementsMatch(t, debt.IDs(before), debt.IDs(after), "records are updated in place")
	})

	t.Run("note change keeps amounts", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "90", users(2)...)

		note := "team lunch"
		_, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{Note: &note})
		require.NoError(t, err)

		for _, r := range recordsOf(t, store, split.Expense.ID) {
			assert.Equal(t, "team lunch", r.Note)
			assert.True(t, r.Amount.Equal(dec("30")))
		}
	})

	t.Run("participants replace the split", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "90", users(2)...)
		newParticipants := users(4)

		result, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{ParticipantIDs: newParticipants})

		require.NoError(t, err)
		records := recordsOf(t, store, split.Expense.ID)
		require.Len(t, records, 4)
		assert.ElementsMatch(t, newParticipants, debt.DistinctDebtors(records))
		assert.True(t, records[0].Amount.Equal(dec("18")))
		assert.Len(t, result.Records, 4)
	})

	t.Run("empty participants unsplit the expense", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "90", users(2)...)

		result, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{ParticipantIDs: []uuid.UUID{}})

		require.NoError(t, err)
		assert.Equal(t, ledger.StateUnsplit, result.State)
		assert.Nil(t, result.Expense.GroupID)
		assert.Empty(t, recordsOf(t, store, split.Expense.ID))
	})

	t.Run("cascade failure keeps the expense update", func(t *testing.T) {
		store := memory.NewStore()
		participants := users(3)
		split := splitExpense(t, store, uuid.New(), uuid.New(), "100", participants...)
		store.SetFaults(memory.Faults{UpdateDebts: func(uuid.UUID) error {
			return errors.New("connection reset")
		}})

		amount := dec("200")
		result, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{Amount: &amount})

		require.NoError(t, err)
		assert.Equal(t, shared.OutcomePartial, result.Outcome())
		assert.Equal(t, shared.OperationCascadeUpdate, result.Warnings[0].Operation)

		stored, err := store.Expenses().GetByID(ctx, split.Expense.ID)
		require.NoError(t, err)
		assert.True(t, stored.Amount.Equal(dec("200")))
		for _, r := range recordsOf(t, store, split.Expense.ID) {
			assert.True(t, r.Amount.Equal(dec("25")), "records untouched after rollback")
		}

		pending, err := store.Outbox().GetPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		event, err := pending[0].Event()
		require.NoError(t, err)
		assert.Equal(t, reconciliation.KindCascadeIncomplete, event.Kind)
		assert.ElementsMatch(t, participants, event.ParticipantIDs)
	})

	t.Run("edit stands when the reconciliation write also fails", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "100", users(3)...)
		store.SetFaults(memory.Faults{
			UpdateDebts: func(uuid.UUID) error {
				return errors.New("connection reset")
			},
			CreateOutbox: func(*outbox.Message) error {
				return errors.New("outbox down")
			},
		})

		amount := dec("200")
		result, err := cascade.ApplyEdit(ctx, store, split.Expense.ID, expense.Changes{Amount: &amount})

		require.NoError(t, err)
		require.Len(t, result.Warnings, 2)
		assert.Equal(t, shared.OperationCascadeUpdate, result.Warnings[0].Operation)
		assert.Equal(t, shared.OperationEnqueueRepair, result.Warnings[1].Operation)

		stored, err := store.Expenses().GetByID(ctx, split.Expense.ID)
		require.NoError(t, err)
		assert.True(t, stored.Amount.Equal(dec("200")))
		pending, err := store.Outbox().GetPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("settlement rows cannot be edited", func(t *testing.T) {
		store := memory.NewStore()
		recorder := ledger.NewSettlementRecorder(newTestLogger())
		payer, recipient := uuid.New(), uuid.New()
		settlement, err := recorder.Record(ctx, store, ledger.SettlementRequest{
			PayerID: payer, RecipientID: recipient, Amount: dec("5"), AuthorizingUserID: payer,
		})
		require.NoError(t, err)

		note := "changed"
		_, err = cascade.ApplyEdit(ctx, store, settlement.PayerExpense.ID, expense.Changes{Note: &note})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("missing expense", func(t *testing.T) {
		note := "x"
		_, err := cascade.ApplyEdit(ctx, memory.NewStore(), uuid.New(), expense.Changes{Note: &note})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCascadeUpdater_ApplyDelete(t *testing.T) {
	ctx := context.Background()
	cascade := ledger.NewCascadeUpdater(newTestLogger())

	t.Run("removes expense and records", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "60", users(2)...)

		result, err := cascade.ApplyDelete(ctx, store, split.Expense.ID)

		require.NoError(t, err)
		assert.Len(t, result.RemovedRecordIDs, 2)
		assert.Empty(t, recordsOf(t, store, split.Expense.ID))
		_, err = store.Expenses().GetByID(ctx, split.Expense.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("failure rolls back and reports remaining records", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "60", users(2)...)
		store.SetFaults(memory.Faults{DeleteExpense: func(uuid.UUID) error {
			return errors.New("lock timeout")
		}})

		_, err := cascade.ApplyDelete(ctx, store, split.Expense.ID)

		var cascadeErr *ledger.CascadeDeleteError
		require.ErrorAs(t, err, &cascadeErr)
		assert.Empty(t, cascadeErr.Removed)
		assert.ElementsMatch(t, debt.IDs(split.Records), cascadeErr.Remaining)
		assert.Len(t, recordsOf(t, store, split.Expense.ID), 2)
	})

	t.Run("settlement rows cannot be deleted", func(t *testing.T) {
		store := memory.NewStore()
		recorder := ledger.NewSettlementRecorder(newTestLogger())
		payer, recipient := uuid.New(), uuid.New()
		settlement, err := recorder.Record(ctx, store, ledger.SettlementRequest{
			PayerID: payer, RecipientID: recipient, Amount: dec("10"), AuthorizingUserID: payer,
		})
		require.NoError(t, err)

		_, err = cascade.ApplyDelete(ctx, store, settlement.PayerExpense.ID)

		assert.True(t, shared.IsValidation(err))
		var cascadeErr *ledger.CascadeDeleteError
		assert.False(t, errors.As(err, &cascadeErr))
		for _, id := range []uuid.UUID{settlement.PayerExpense.ID, settlement.RecipientExpense.ID} {
			_, err := store.Expenses().GetByID(ctx, id)
			assert.NoError(t, err, "both sides of the settlement remain")
		}
	})

	t.Run("missing expense", func(t *testing.T) {
		_, err := cascade.ApplyDelete(ctx, memory.NewStore(), uuid.New())
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestCascadeUpdater_Rebuild(t *testing.T) {
	ctx := context.Background()
	cascade := ledger.NewCascadeUpdater(newTestLogger())

	t.Run("keeps current debtors", func(t *testing.T) {
		store := memory.NewStore()
		participants := users(3)
		split := splitExpense(t, store, uuid.New(), uuid.New(), "100", participants...)

		records, err := cascade.Rebuild(ctx, store, split.Expense.ID, nil)

		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.ElementsMatch(t, participants, debt.DistinctDebtors(recordsOf(t, store, split.Expense.ID)))
	})

	t.Run("uses target participants", func(t *testing.T) {
		store := memory.NewStore()
		split := splitExpense(t, store, uuid.New(), uuid.New(), "100", users(1)...)
		target := users(4)

		records, err := cascade.Rebuild(ctx, store, split.Expense.ID, target)

		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.True(t, records[0].Amount.Equal(dec("20")))
	})

	t.Run("deleted expense", func(t *testing.T) {
		_, err := cascade.Rebuild(ctx, memory.NewStore(), uuid.New(), nil)
		assert.True(t, shared.IsNotFound(err))
	})
}
