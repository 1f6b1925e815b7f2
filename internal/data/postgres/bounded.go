package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// The bounded repositories serve a Store outside a transaction. Every call is
// its own unit of work: it runs under the retry policy's per-attempt deadline
// and comes back as a *shared.StoreError once retries are spent.

func bounded[T any](ctx context.Context, s *Store, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.policy.Do(ctx, s.logger, op, func(attemptCtx context.Context) error {
		v, err := fn(attemptCtx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func boundedExec(ctx context.Context, s *Store, op string, fn func(ctx context.Context) error) error {
	return s.policy.Do(ctx, s.logger, op, fn)
}

type boundedExpenses struct {
	s    *Store
	repo *ExpenseRepository
}

func (b boundedExpenses) Create(ctx context.Context, exp *expense.Expense) error {
	return boundedExec(ctx, b.s, "create expense", func(ctx context.Context) error {
		return b.repo.Create(ctx, exp)
	})
}

func (b boundedExpenses) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	return bounded(ctx, b.s, "get expense", func(ctx context.Context) (*expense.Expense, error) {
		return b.repo.GetByID(ctx, id)
	})
}

func (b boundedExpenses) List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	return bounded(ctx, b.s, "list expenses", func(ctx context.Context) ([]*expense.Expense, error) {
		return b.repo.List(ctx, filter)
	})
}

func (b boundedExpenses) Sum(ctx context.Context, filter expense.Filter) (decimal.Decimal, error) {
	return bounded(ctx, b.s, "sum expenses", func(ctx context.Context) (decimal.Decimal, error) {
		return b.repo.Sum(ctx, filter)
	})
}

func (b boundedExpenses) Update(ctx context.Context, exp *expense.Expense) error {
	return boundedExec(ctx, b.s, "update expense", func(ctx context.Context) error {
		return b.repo.Update(ctx, exp)
	})
}

func (b boundedExpenses) LockForUpdate(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	return bounded(ctx, b.s, "lock expense", func(ctx context.Context) (*expense.Expense, error) {
		return b.repo.LockForUpdate(ctx, id)
	})
}

func (b boundedExpenses) Delete(ctx context.Context, id uuid.UUID) error {
	return boundedExec(ctx, b.s, "delete expense", func(ctx context.Context) error {
		return b.repo.Delete(ctx, id)
	})
}

type boundedDebts struct {
	s    *Store
	repo *DebtRepository
}

func (b boundedDebts) Create(ctx context.Context, record *debt.DebtRecord) error {
	return boundedExec(ctx, b.s, "create debt record", func(ctx context.Context) error {
		return b.repo.Create(ctx, record)
	})
}

func (b boundedDebts) GetByID(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error) {
	return bounded(ctx, b.s, "get debt record", func(ctx context.Context) (*debt.DebtRecord, error) {
		return b.repo.GetByID(ctx, id)
	})
}

func (b boundedDebts) Find(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error) {
	return bounded(ctx, b.s, "find debt records", func(ctx context.Context) ([]*debt.DebtRecord, error) {
		return b.repo.Find(ctx, filter)
	})
}

func (b boundedDebts) Update(ctx context.Context, record *debt.DebtRecord) error {
	return boundedExec(ctx, b.s, "update debt record", func(ctx context.Context) error {
		return b.repo.Update(ctx, record)
	})
}

func (b boundedDebts) Delete(ctx context.Context, id uuid.UUID) error {
	return boundedExec(ctx, b.s, "delete debt record", func(ctx context.Context) error {
		return b.repo.Delete(ctx, id)
	})
}

func (b boundedDebts) UpdateAmountByExpense(ctx context.Context, expenseID uuid.UUID, amount decimal.Decimal) ([]*debt.DebtRecord, error) {
	return bounded(ctx, b.s, "update debt amounts", func(ctx context.Context) ([]*debt.DebtRecord, error) {
		return b.repo.UpdateAmountByExpense(ctx, expenseID, amount)
	})
}

func (b boundedDebts) UpdateNoteByExpense(ctx context.Context, expenseID uuid.UUID, note string) ([]*debt.DebtRecord, error) {
	return bounded(ctx, b.s, "update debt notes", func(ctx context.Context) ([]*debt.DebtRecord, error) {
		return b.repo.UpdateNoteByExpense(ctx, expenseID, note)
	})
}

func (b boundedDebts) DeleteByExpense(ctx context.Context, expenseID uuid.UUID) ([]*debt.DebtRecord, error) {
	return bounded(ctx, b.s, "delete debt records", func(ctx context.Context) ([]*debt.DebtRecord, error) {
		return b.repo.DeleteByExpense(ctx, expenseID)
	})
}

type boundedOutbox struct {
	s    *Store
	repo *OutboxRepository
}

func (b boundedOutbox) Create(ctx context.Context, message *outbox.Message) error {
	return boundedExec(ctx, b.s, "create outbox message", func(ctx context.Context) error {
		return b.repo.Create(ctx, message)
	})
}

func (b boundedOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return bounded(ctx, b.s, "get pending outbox messages", func(ctx context.Context) ([]*outbox.Message, error) {
		return b.repo.GetPending(ctx, limit)
	})
}

func (b boundedOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return boundedExec(ctx, b.s, "update outbox status", func(ctx context.Context) error {
		return b.repo.UpdateStatus(ctx, id, status)
	})
}

func (b boundedOutbox) IncrementAttempts(ctx context.Context, id int64) error {
	return boundedExec(ctx, b.s, "increment outbox attempts", func(ctx context.Context) error {
		return b.repo.IncrementAttempts(ctx, id)
	})
}

func (b boundedOutbox) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	return bounded(ctx, b.s, "get outbox message", func(ctx context.Context) (*outbox.Message, error) {
		return b.repo.GetByEventID(ctx, eventID)
	})
}

var (
	_ expense.Repository = boundedExpenses{}
	_ debt.Repository    = boundedDebts{}
	_ outbox.Repository  = boundedOutbox{}
)
