// Package memory is an in-process ledger.Store. Transactions are serialized
// by one mutex and rolled back by restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/ledger"
)

// Faults lets tests make individual writes fail. A nil hook never fails.
type Faults struct {
	CreateExpense func(exp *expense.Expense) error
	UpdateExpense func(exp *expense.Expense) error
	DeleteExpense func(id uuid.UUID) error
	CreateDebt    func(record *debt.DebtRecord) error
	UpdateDebts   func(expenseID uuid.UUID) error
	DeleteDebts   func(expenseID uuid.UUID) error
	CreateOutbox  func(message *outbox.Message) error
}

type state struct {
	expenses     map[uuid.UUID]*expense.Expense
	debts        map[uuid.UUID]*debt.DebtRecord
	outbox       []*outbox.Message
	nextOutboxID int64
}

func (s *state) clone() *state {
	c := &state{
		expenses:     make(map[uuid.UUID]*expense.Expense, len(s.expenses)),
		debts:        make(map[uuid.UUID]*debt.DebtRecord, len(s.debts)),
		outbox:       make([]*outbox.Message, 0, len(s.outbox)),
		nextOutboxID: s.nextOutboxID,
	}
	for id, e := range s.expenses {
		c.expenses[id] = copyExpense(e)
	}
	for id, r := range s.debts {
		c.debts[id] = copyRecord(r)
	}
	for _, m := range s.outbox {
		cm := *m
		c.outbox = append(c.outbox, &cm)
	}
	return c
}

type database struct {
	mu     sync.Mutex
	state  *state
	faults Faults
}

// Store implements ledger.Store in memory
type Store struct {
	db   *database
	inTx bool
}

var _ ledger.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{db: &database{state: &state{
		expenses: make(map[uuid.UUID]*expense.Expense),
		debts:    make(map[uuid.UUID]*debt.DebtRecord),
	}}}
}

// SetFaults replaces the fault hooks
func (s *Store) SetFaults(f Faults) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.faults = f
}

func (s *Store) Expenses() expense.Repository {
	return &expenseRepository{store: s}
}

func (s *Store) Debts() debt.Repository {
	return &debtRepository{store: s}
}

func (s *Store) Outbox() outbox.Repository {
	return &outboxRepository{store: s}
}

// InTx runs fn against a snapshot-protected view. Nested calls roll back only
// their own changes.
func (s *Store) InTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}

	snapshot := s.db.state.clone()
	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

// do runs fn with exclusive access to the state
func (s *Store) do(fn func(st *state, f Faults) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	return fn(s.db.state, s.db.faults)
}

func copyExpense(e *expense.Expense) *expense.Expense {
	c := *e
	if e.GroupID != nil {
		g := *e.GroupID
		c.GroupID = &g
	}
	if e.CounterpartyID != nil {
		p := *e.CounterpartyID
		c.CounterpartyID = &p
	}
	return &c
}

func copyRecord(r *debt.DebtRecord) *debt.DebtRecord {
	c := *r
	if r.ExpenseID != nil {
		e := *r.ExpenseID
		c.ExpenseID = &e
	}
	return &c
}
