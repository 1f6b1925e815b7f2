package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shopspring/decimal"
)

type expenseRepository struct {
	store *Store
}

func (r *expenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	return r.store.do(func(st *state, f Faults) error {
		if f.CreateExpense != nil {
			if err := f.CreateExpense(exp); err != nil {
				return err
			}
		}
		st.expenses[exp.ID] = copyExpense(exp)
		return nil
	})
}

func (r *expenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	var found *expense.Expense
	err := r.store.do(func(st *state, _ Faults) error {
		e, ok := st.expenses[id]
		if !ok {
			return expense.ErrExpenseNotFound{ExpenseID: id}
		}
		found = copyExpense(e)
		return nil
	})
	return found, err
}

// LockForUpdate is GetByID; the store mutex already serializes transactions
func (r *expenseRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	return r.GetByID(ctx, id)
}

func (r *expenseRepository) List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	var out []*expense.Expense
	err := r.store.do(func(st *state, _ Faults) error {
		matched := matchExpenses(st, filter)
		sort.Slice(matched, func(i, j int) bool {
			if filter.OrderDesc {
				return matched[i].CreatedAt.After(matched[j].CreatedAt)
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})

		if filter.Offset >= len(matched) {
			return nil
		}
		matched = matched[filter.Offset:]
		if filter.Limit > 0 && filter.Limit < len(matched) {
			matched = matched[:filter.Limit]
		}
		for _, e := range matched {
			out = append(out, copyExpense(e))
		}
		return nil
	})
	return out, err
}

func (r *expenseRepository) Sum(ctx context.Context, filter expense.Filter) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.store.do(func(st *state, _ Faults) error {
		for _, e := range matchExpenses(st, filter) {
			total = total.Add(e.Amount)
		}
		return nil
	})
	return total, err
}

func (r *expenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	return r.store.do(func(st *state, f Faults) error {
		current, ok := st.expenses[exp.ID]
		if !ok || current.Version != exp.Version-1 {
			return expense.ErrConcurrentModification{ExpenseID: exp.ID}
		}
		if f.UpdateExpense != nil {
			if err := f.UpdateExpense(exp); err != nil {
				return err
			}
		}
		st.expenses[exp.ID] = copyExpense(exp)
		return nil
	})
}

func (r *expenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.do(func(st *state, f Faults) error {
		if _, ok := st.expenses[id]; !ok {
			return expense.ErrExpenseNotFound{ExpenseID: id}
		}
		if f.DeleteExpense != nil {
			if err := f.DeleteExpense(id); err != nil {
				return err
			}
		}
		delete(st.expenses, id)
		return nil
	})
}

func matchExpenses(st *state, filter expense.Filter) []*expense.Expense {
	var matched []*expense.Expense
	for _, e := range st.expenses {
		if e.UserID != filter.UserID {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		if filter.StartDate != nil && e.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && e.CreatedAt.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}
