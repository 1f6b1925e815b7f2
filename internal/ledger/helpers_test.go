package ledger_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/data/memory"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newExpense(t *testing.T, payer uuid.UUID, amount string) *expense.Expense {
	t.Helper()
	exp, err := expense.NewExpense(payer, dec(amount), false, expense.CategoryFood, "dinner", nil)
	require.NoError(t, err)
	return exp
}

// splitExpense stores an expense split between participants and returns it
func splitExpense(t *testing.T, store *memory.Store, payer, groupID uuid.UUID, amount string, participants ...uuid.UUID) *ledger.SplitResult {
	t.Helper()
	splitter := ledger.NewSplitter(newTestLogger())
	result, err := splitter.Split(context.Background(), store, newExpense(t, payer, amount), &groupID, participants)
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	return result
}

func recordsOf(t *testing.T, store *memory.Store, expenseID uuid.UUID) []*debt.DebtRecord {
	t.Helper()
	records, err := store.Debts().Find(context.Background(), debt.Filter{ExpenseID: &expenseID})
	require.NoError(t, err)
	return records
}

func sumAmounts(records []*debt.DebtRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

func users(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}
