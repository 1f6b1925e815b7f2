package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shared-expense-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMockPool(t)
	return &Store{
		db:     mock,
		logger: newTestLogger(),
		policy: persistence.RetryPolicy{Timeout: time.Second, MaxAttempts: 2, Backoff: time.Millisecond},
	}, mock
}

func newStoreExpense(t *testing.T) *expense.Expense {
	exp, err := expense.NewExpense(uuid.New(), decimal.NewFromInt(12), false, expense.CategoryFood, "", nil)
	require.NoError(t, err)
	return exp
}

func TestStore_InTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits", func(t *testing.T) {
		store, mock := newMockStore(t)
		exp := newStoreExpense(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO expenses`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := store.InTx(ctx, func(tx ledger.Store) error {
			return tx.Expenses().Create(ctx, exp)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back validation errors without retry", func(t *testing.T) {
		store, mock := newMockStore(t)
		validationErr := shared.NewValidationError("amount", "must be positive")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.InTx(ctx, func(tx ledger.Store) error {
			return validationErr
		})
		assert.Equal(t, validationErr, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries serialization failures", func(t *testing.T) {
		store, mock := newMockStore(t)
		exp := newStoreExpense(t)
		conflict := &pgconn.PgError{Code: "40001"}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO expenses`).WillReturnError(conflict)
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO expenses`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		attempts := 0
		err := store.InTx(ctx, func(tx ledger.Store) error {
			attempts++
			return tx.Expenses().Create(ctx, exp)
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces store error after last attempt", func(t *testing.T) {
		store, mock := newMockStore(t)
		exp := newStoreExpense(t)
		conflict := &pgconn.PgError{Code: "40P01"}

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec(`INSERT INTO expenses`).WillReturnError(conflict)
			mock.ExpectRollback()
		}

		err := store.InTx(ctx, func(tx ledger.Store) error {
			return tx.Expenses().Create(ctx, exp)
		})
		var storeErr *shared.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.ErrorIs(t, err, conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested failure rolls back only the savepoint", func(t *testing.T) {
		store, mock := newMockStore(t)
		exp := newStoreExpense(t)
		nestedErr := errors.New("debt insert failed")

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO expenses`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectCommit()

		err := store.InTx(ctx, func(tx ledger.Store) error {
			if err := tx.Expenses().Create(ctx, exp); err != nil {
				return err
			}
			savepointErr := tx.InTx(ctx, func(ledger.Store) error {
				return nestedErr
			})
			assert.ErrorIs(t, savepointErr, nestedErr)
			return nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_RepositoriesOutsideTx(t *testing.T) {
	ctx := context.Background()
	getQuery := `FROM expenses\s+WHERE id = \$1`

	t.Run("retries a failed read", func(t *testing.T) {
		store, mock := newMockStore(t)
		id, userID := uuid.New(), uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(getQuery).WithArgs(id).WillReturnError(&pgconn.PgError{Code: "40001"})
		mock.ExpectQuery(getQuery).WithArgs(id).WillReturnRows(pgxmock.NewRows(expenseRowColumns).AddRow(
			id, userID, decimal.NewFromInt(8), false, expense.CategoryFood, "", []byte(`{}`), nil, nil, 1, now, now,
		))

		exp, err := store.Expenses().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, exp.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces store error after last attempt", func(t *testing.T) {
		store, mock := newMockStore(t)
		conflict := &pgconn.PgError{Code: "40P01"}
		groupID := uuid.New()

		for i := 0; i < 2; i++ {
			mock.ExpectQuery(`FROM debt_records`).WillReturnError(conflict)
		}

		records, err := store.Debts().Find(ctx, debt.Filter{GroupIDs: []uuid.UUID{groupID}})
		assert.Nil(t, records)
		var storeErr *shared.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "find debt records", storeErr.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does not retry not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		id := uuid.New()

		mock.ExpectQuery(getQuery).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		exp, err := store.Expenses().GetByID(ctx, id)
		assert.Nil(t, exp)
		assert.True(t, shared.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("transactional store joins the transaction", func(t *testing.T) {
		store, mock := newMockStore(t)

		assert.IsType(t, boundedExpenses{}, store.Expenses())
		assert.IsType(t, boundedDebts{}, store.Debts())
		assert.IsType(t, boundedOutbox{}, store.Outbox())

		mock.ExpectBegin()
		mock.ExpectCommit()
		err := store.InTx(ctx, func(tx ledger.Store) error {
			assert.IsType(t, &ExpenseRepository{}, tx.Expenses())
			assert.IsType(t, &DebtRepository{}, tx.Debts())
			assert.IsType(t, &OutboxRepository{}, tx.Outbox())
			return nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
