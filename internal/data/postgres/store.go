package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shared-expense-ledger/internal/platform/persistence"
)

// Store implements ledger.Store on PostgreSQL. Top-level units of work run
// under the retry policy; nested ones become savepoints.
type Store struct {
	db     persistence.DB
	logger *slog.Logger
	policy persistence.RetryPolicy
	inTx   bool
}

var _ ledger.Store = (*Store)(nil)

// NewStore creates a ledger store backed by the connection pool
func NewStore(logger *slog.Logger, pg *persistence.PostgresDB, policy persistence.RetryPolicy) *Store {
	return &Store{
		db:     pg.Pool(),
		logger: logger,
		policy: policy,
	}
}

// Expenses, Debts and Outbox join the transaction of a transactional Store.
// Otherwise each repository call is bounded by the retry policy on its own.
func (s *Store) Expenses() expense.Repository {
	repo := &ExpenseRepository{querier: s.db, logger: s.logger}
	if s.inTx {
		return repo
	}
	return boundedExpenses{s: s, repo: repo}
}

func (s *Store) Debts() debt.Repository {
	repo := &DebtRepository{querier: s.db, logger: s.logger}
	if s.inTx {
		return repo
	}
	return boundedDebts{s: s, repo: repo}
}

func (s *Store) Outbox() outbox.Repository {
	repo := &OutboxRepository{querier: s.db, logger: s.logger}
	if s.inTx {
		return repo
	}
	return boundedOutbox{s: s, repo: repo}
}

// InTx runs fn in a transaction, or in a savepoint when s is already
// transactional. Statements issued through the Store handed to fn run under
// the attempt's deadline.
func (s *Store) InTx(ctx context.Context, fn func(tx ledger.Store) error) error {
	if s.inTx {
		return persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
			return fn(s.child(ctx, tx))
		})
	}

	return s.policy.Do(ctx, s.logger, "ledger transaction", func(attemptCtx context.Context) error {
		return persistence.ExecuteTx(attemptCtx, s.db, func(tx pgx.Tx) error {
			return fn(s.child(attemptCtx, tx))
		})
	})
}

func (s *Store) child(ctx context.Context, tx pgx.Tx) *Store {
	return &Store{
		db:     boundDB{tx: tx, ctx: ctx},
		logger: s.logger,
		policy: s.policy,
		inTx:   true,
	}
}

// boundDB runs every statement of a transaction under the context the
// transaction was started with.
type boundDB struct {
	tx  pgx.Tx
	ctx context.Context
}

func (b boundDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return b.tx.Exec(b.ctx, sql, args...)
}

func (b boundDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return b.tx.Query(b.ctx, sql, args...)
}

func (b boundDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	return b.tx.QueryRow(b.ctx, sql, args...)
}

func (b boundDB) Begin(_ context.Context) (pgx.Tx, error) {
	return b.tx.Begin(b.ctx)
}
