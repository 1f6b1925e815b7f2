package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/data/memory"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementRecorder_Record(t *testing.T) {
	ctx := context.Background()
	recorder := ledger.NewSettlementRecorder(newTestLogger())
	payer, recipient := uuid.New(), uuid.New()

	t.Run("writes both sides", func(t *testing.T) {
		store := memory.NewStore()

		settlement, err := recorder.Record(ctx, store, ledger.SettlementRequest{
			PayerID: payer, RecipientID: recipient, Amount: dec("15"), AuthorizingUserID: recipient, Note: "cash",
		})

		require.NoError(t, err)
		p, r := settlement.PayerExpense, settlement.RecipientExpense
		assert.False(t, p.Credit)
		assert.True(t, r.Credit)
		assert.Equal(t, expense.CategorySettlement, p.Category)
		assert.Equal(t, expense.CategorySettlement, r.Category)
		assert.Equal(t, recipient, *p.CounterpartyID)
		assert.Equal(t, payer, *r.CounterpartyID)
		assert.Equal(t, p.CreatedAt, r.CreatedAt)
		assert.True(t, settlement.Amount().Equal(dec("15")))

		_, err = store.Expenses().GetByID(ctx, p.ID)
		assert.NoError(t, err)
		_, err = store.Expenses().GetByID(ctx, r.ID)
		assert.NoError(t, err)
	})

	t.Run("second write failing leaves nothing", func(t *testing.T) {
		store := memory.NewStore()
		store.SetFaults(memory.Faults{CreateExpense: func(e *expense.Expense) error {
			if e.Credit {
				return errors.New("write failed")
			}
			return nil
		}})

		_, err := recorder.Record(ctx, store, ledger.SettlementRequest{
			PayerID: payer, RecipientID: recipient, Amount: dec("15"), AuthorizingUserID: payer,
		})

		require.Error(t, err)
		list, err := store.Expenses().List(ctx, expense.Filter{UserID: payer})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("validation", func(t *testing.T) {
		cases := map[string]ledger.SettlementRequest{
			"zero amount":       {PayerID: payer, RecipientID: recipient, Amount: dec("0"), AuthorizingUserID: payer},
			"negative amount":   {PayerID: payer, RecipientID: recipient, Amount: dec("-1"), AuthorizingUserID: payer},
			"self settlement":   {PayerID: payer, RecipientID: payer, Amount: dec("1"), AuthorizingUserID: payer},
			"third party":       {PayerID: payer, RecipientID: recipient, Amount: dec("1"), AuthorizingUserID: uuid.New()},
			"missing recipient": {PayerID: payer, Amount: dec("1"), AuthorizingUserID: payer},
		}
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := recorder.Record(ctx, memory.NewStore(), req)
				assert.True(t, shared.IsValidation(err))
			})
		}
	})
}
