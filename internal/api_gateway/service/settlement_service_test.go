package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/data/memory"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettlementService(store *memory.Store) SettlementService {
	return newSettlementServiceWithKeys(store, memory.NewIdempotencyStore())
}

func newSettlementServiceWithKeys(store *memory.Store, keys *memory.IdempotencyStore) SettlementService {
	logger := newTestLogger()
	return NewSettlementService(logger, store, ledger.NewGroupingEngine(logger, time.Second), keys)
}

func TestSettlementService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	expenses := newExpenseService(store)
	settlements := newSettlementService(store)
	u1, u2, groupID := uuid.New(), uuid.New(), uuid.New()

	_, _, err := expenses.CreateExpense(ctx, CreateExpenseInput{
		UserID:         u1,
		Amount:         dec("30"),
		Category:       expense.CategoryFood,
		GroupID:        &groupID,
		ParticipantIDs: []uuid.UUID{u2},
	})
	require.NoError(t, err)

	before, err := settlements.ListSettlementsForUser(ctx, u1, []uuid.UUID{groupID})
	require.NoError(t, err)
	require.Len(t, before.Splits, 1)
	assert.Equal(t, "15.00", shared.FormatAmount(before.Splits[0].PerPerson))
	assert.Equal(t, "30.00", shared.FormatAmount(before.Splits[0].Total))
	assert.Equal(t, "15.00", shared.FormatAmount(before.Balance.Net))

	settlement, replayed, err := settlements.RecordSettlement(ctx, ledger.SettlementRequest{
		PayerID:           u2,
		RecipientID:       u1,
		Amount:            dec("15"),
		AuthorizingUserID: u2,
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "-15.00", shared.FormatAmount(settlement.PayerExpense.SignedAmount()))
	assert.Equal(t, "15.00", shared.FormatAmount(settlement.RecipientExpense.SignedAmount()))

	// Settlements are expenses; debt records and the balance derived from them stay put
	after, err := settlements.ListSettlementsForUser(ctx, u1, []uuid.UUID{groupID})
	require.NoError(t, err)
	assert.True(t, before.Balance.Net.Equal(after.Balance.Net))
	assert.Len(t, after.Splits, 1)
}

func TestSettlementService_ListSettlementsForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("NoGroups", func(t *testing.T) {
		svc := newSettlementService(memory.NewStore())

		overview, err := svc.ListSettlementsForUser(ctx, uuid.New(), nil)

		require.NoError(t, err)
		assert.Empty(t, overview.Splits)
		assert.True(t, overview.Balance.Net.IsZero())
	})

	t.Run("ThreeWaySplit", func(t *testing.T) {
		store := memory.NewStore()
		svc := newSettlementService(store)
		payer, groupID := uuid.New(), uuid.New()
		_, _, err := newExpenseService(store).CreateExpense(ctx, CreateExpenseInput{
			UserID:         payer,
			Amount:         dec("90"),
			Category:       expense.CategoryFood,
			GroupID:        &groupID,
			ParticipantIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		})
		require.NoError(t, err)

		overview, err := svc.ListSettlementsForUser(ctx, payer, []uuid.UUID{groupID})

		require.NoError(t, err)
		require.Len(t, overview.Splits, 1)
		split := overview.Splits[0]
		assert.Equal(t, "22.50", shared.FormatAmount(split.PerPerson))
		assert.Equal(t, "90.00", shared.FormatAmount(split.Total))
		assert.Len(t, split.DebtorIDs, 3)
		assert.Equal(t, "67.50", shared.FormatAmount(overview.Balance.Owed))
	})
}

func TestSettlementService_RecordSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("RequiresParty", func(t *testing.T) {
		svc := newSettlementService(memory.NewStore())

		_, _, err := svc.RecordSettlement(ctx, ledger.SettlementRequest{
			PayerID:           uuid.New(),
			RecipientID:       uuid.New(),
			Amount:            dec("5"),
			AuthorizingUserID: uuid.New(),
		}, "")

		assert.True(t, shared.IsValidation(err))
	})

	t.Run("ReplayReturnsBothSides", func(t *testing.T) {
		store := memory.NewStore()
		svc := newSettlementService(store)
		payer, recipient := uuid.New(), uuid.New()
		req := ledger.SettlementRequest{
			PayerID:           payer,
			RecipientID:       recipient,
			Amount:            dec("42"),
			AuthorizingUserID: recipient,
			Note:              "rent",
		}

		first, _, err := svc.RecordSettlement(ctx, req, "settle-1")
		require.NoError(t, err)
		second, replayed, err := svc.RecordSettlement(ctx, req, "settle-1")
		require.NoError(t, err)

		assert.True(t, replayed)
		assert.Equal(t, first.PayerExpense.ID, second.PayerExpense.ID)
		assert.Equal(t, first.RecipientExpense.ID, second.RecipientExpense.ID)

		payerExpenses, err := store.Expenses().List(ctx, expense.Filter{UserID: payer})
		require.NoError(t, err)
		assert.Len(t, payerExpenses, 1)
	})

	t.Run("KeyOfAnotherUserDoesNotReplay", func(t *testing.T) {
		store := memory.NewStore()
		svc := newSettlementService(store)
		a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

		first, _, err := svc.RecordSettlement(ctx, ledger.SettlementRequest{
			PayerID: a, RecipientID: b, Amount: dec("10"), AuthorizingUserID: a,
		}, "k1")
		require.NoError(t, err)

		second, replayed, err := svc.RecordSettlement(ctx, ledger.SettlementRequest{
			PayerID: c, RecipientID: d, Amount: dec("99"), AuthorizingUserID: c,
		}, "k1")

		require.NoError(t, err)
		assert.False(t, replayed)
		assert.NotEqual(t, first.PayerExpense.ID, second.PayerExpense.ID)
		assert.Equal(t, c, second.PayerExpense.UserID)
		assert.Equal(t, "99.00", shared.FormatAmount(second.Amount()))
	})

	t.Run("ExpenseKeyIsIndependent", func(t *testing.T) {
		store := memory.NewStore()
		keys := memory.NewIdempotencyStore()
		expenses := NewExpenseService(newTestLogger(), store, keys, 100)
		settlements := newSettlementServiceWithKeys(store, keys)
		payer, recipient := uuid.New(), uuid.New()

		_, _, err := expenses.CreateExpense(ctx, CreateExpenseInput{
			UserID:         payer,
			Amount:         dec("20"),
			Category:       expense.CategoryFood,
			IdempotencyKey: "k2",
		})
		require.NoError(t, err)

		settlement, replayed, err := settlements.RecordSettlement(ctx, ledger.SettlementRequest{
			PayerID: payer, RecipientID: recipient, Amount: dec("5"), AuthorizingUserID: payer,
		}, "k2")

		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, "5.00", shared.FormatAmount(settlement.Amount()))
	})
}
