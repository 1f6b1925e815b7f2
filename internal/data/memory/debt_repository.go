package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shopspring/decimal"
)

type debtRepository struct {
	store *Store
}

func (r *debtRepository) Create(ctx context.Context, record *debt.DebtRecord) error {
	return r.store.do(func(st *state, f Faults) error {
		if f.CreateDebt != nil {
			if err := f.CreateDebt(record); err != nil {
				return err
			}
		}
		st.debts[record.ID] = copyRecord(record)
		return nil
	})
}

func (r *debtRepository) GetByID(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error) {
	var found *debt.DebtRecord
	err := r.store.do(func(st *state, _ Faults) error {
		rec, ok := st.debts[id]
		if !ok {
			return debt.ErrRecordNotFound{RecordID: id}
		}
		found = copyRecord(rec)
		return nil
	})
	return found, err
}

func (r *debtRepository) Find(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error) {
	var out []*debt.DebtRecord
	err := r.store.do(func(st *state, _ Faults) error {
		matched := matchRecords(st, filter)
		if filter.Limit > 0 && filter.Limit < len(matched) {
			matched = matched[:filter.Limit]
		}
		for _, rec := range matched {
			out = append(out, copyRecord(rec))
		}
		return nil
	})
	return out, err
}

func (r *debtRepository) Update(ctx context.Context, record *debt.DebtRecord) error {
	return r.store.do(func(st *state, _ Faults) error {
		if _, ok := st.debts[record.ID]; !ok {
			return debt.ErrRecordNotFound{RecordID: record.ID}
		}
		st.debts[record.ID] = copyRecord(record)
		return nil
	})
}

func (r *debtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.do(func(st *state, _ Faults) error {
		if _, ok := st.debts[id]; !ok {
			return debt.ErrRecordNotFound{RecordID: id}
		}
		delete(st.debts, id)
		return nil
	})
}

func (r *debtRepository) UpdateAmountByExpense(ctx context.Context, expenseID uuid.UUID, amount decimal.Decimal) ([]*debt.DebtRecord, error) {
	return r.updateByExpense(expenseID, func(rec *debt.DebtRecord) {
		rec.Amount = amount
	})
}

func (r *debtRepository) UpdateNoteByExpense(ctx context.Context, expenseID uuid.UUID, note string) ([]*debt.DebtRecord, error) {
	return r.updateByExpense(expenseID, func(rec *debt.DebtRecord) {
		rec.Note = note
	})
}

func (r *debtRepository) updateByExpense(expenseID uuid.UUID, apply func(rec *debt.DebtRecord)) ([]*debt.DebtRecord, error) {
	var out []*debt.DebtRecord
	err := r.store.do(func(st *state, f Faults) error {
		if f.UpdateDebts != nil {
			if err := f.UpdateDebts(expenseID); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		for _, rec := range matchRecords(st, debt.Filter{ExpenseID: &expenseID}) {
			apply(rec)
			rec.UpdatedAt = now
			out = append(out, copyRecord(rec))
		}
		return nil
	})
	return out, err
}

func (r *debtRepository) DeleteByExpense(ctx context.Context, expenseID uuid.UUID) ([]*debt.DebtRecord, error) {
	var out []*debt.DebtRecord
	err := r.store.do(func(st *state, f Faults) error {
		if f.DeleteDebts != nil {
			if err := f.DeleteDebts(expenseID); err != nil {
				return err
			}
		}
		for _, rec := range matchRecords(st, debt.Filter{ExpenseID: &expenseID}) {
			delete(st.debts, rec.ID)
			out = append(out, copyRecord(rec))
		}
		return nil
	})
	return out, err
}

// matchRecords returns matching records newest first, ties broken by id
func matchRecords(st *state, filter debt.Filter) []*debt.DebtRecord {
	var groups map[uuid.UUID]struct{}
	if len(filter.GroupIDs) > 0 {
		groups = make(map[uuid.UUID]struct{}, len(filter.GroupIDs))
		for _, g := range filter.GroupIDs {
			groups[g] = struct{}{}
		}
	}

	var matched []*debt.DebtRecord
	for _, rec := range st.debts {
		if groups != nil {
			if _, ok := groups[rec.GroupID]; !ok {
				continue
			}
		}
		if filter.CreditorID != nil && rec.CreditorID != *filter.CreditorID {
			continue
		}
		if filter.DebtorID != nil && rec.DebtorID != *filter.DebtorID {
			continue
		}
		if filter.InvolvedID != nil && !rec.Involves(*filter.InvolvedID) {
			continue
		}
		if filter.ExpenseID != nil && (rec.ExpenseID == nil || *rec.ExpenseID != *filter.ExpenseID) {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && rec.CreatedAt.After(*filter.Until) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return matched
}
