// Package ledger turns expenses into debt records and reads them back as
// logical splits, balances and settlements. Every operation receives the
// Store it works against.
package ledger

import (
	"context"

	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/outbox"
)

// Store is the record store the ledger operates on. Repositories returned by
// a Store handed to an InTx callback take part in that transaction.
type Store interface {
	Expenses() expense.Repository
	Debts() debt.Repository
	Outbox() outbox.Repository

	// InTx runs fn as one unit of work. Calling InTx on a transactional Store
	// opens a nested unit that can fail without aborting the outer one.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
