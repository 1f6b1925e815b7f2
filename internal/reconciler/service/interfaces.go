package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/ledger"
)

// RepairService brings an expense's debt records back in line after a
// partially failed write.
type RepairService interface {
	Repair(ctx context.Context, event *reconciliation.Event) error
}

// DebtRebuilder replaces the debt records linked to an expense
type DebtRebuilder interface {
	Rebuild(ctx context.Context, store ledger.Store, expenseID uuid.UUID, participantIDs []uuid.UUID) ([]*debt.DebtRecord, error)
}

// TaskTracker keeps the reconciliation task log in sync with repair progress
type TaskTracker interface {
	Start(ctx context.Context, event *reconciliation.Event) (*reconciliation.Task, error)
	Resolve(ctx context.Context, event *reconciliation.Event, note string) error
	Fail(ctx context.Context, event *reconciliation.Event, reason string) error
}
