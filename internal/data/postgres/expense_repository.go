package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const expenseColumns = `id, user_id, amount, credit, category, note, metadata, group_id, counterparty_id, version, created_at, updated_at`

// ExpenseRepository implements the expense.Repository interface for PostgreSQL
type ExpenseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Create stores a new expense
func (r *ExpenseRepository) Create(ctx context.Context, exp *expense.Expense) error {
	metadata, err := marshalMetadata(exp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode expense metadata: %w", err)
	}

	query := `
		INSERT INTO expenses (id, user_id, amount, credit, category, note, metadata, group_id, counterparty_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.querier.Exec(ctx, query,
		exp.ID,
		exp.UserID,
		exp.Amount,
		exp.Credit,
		exp.Category,
		exp.Note,
		metadata,
		exp.GroupID,
		exp.CounterpartyID,
		exp.Version,
		exp.CreatedAt,
		exp.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", "id", exp.ID.String(), "error", err)
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// GetByID retrieves an expense by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE id = $1
	`

	exp, err := scanExpense(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, expense.ErrExpenseNotFound{ExpenseID: id}
		}
		r.logger.Error("Failed to get expense by ID", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return exp, nil
}

// LockForUpdate obtains a row lock on the expense for the rest of the
// enclosing transaction and returns its current state.
func (r *ExpenseRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE id = $1
		FOR UPDATE
	`

	exp, err := scanExpense(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, expense.ErrExpenseNotFound{ExpenseID: id}
		}
		r.logger.Error("Failed to lock expense", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}

	return exp, nil
}

// List returns the owner's expenses matching the filter
func (r *ExpenseRepository) List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	where, args := expenseWhere(filter)
	order := "ASC"
	if filter.OrderDesc {
		order = "DESC"
	}

	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE ` + where + `
		ORDER BY created_at ` + order + `, id
		LIMIT $` + fmt.Sprint(len(args)+1) + ` OFFSET $` + fmt.Sprint(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", "user_id", filter.UserID.String(), "error", err)
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*expense.Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			r.logger.Error("Failed to scan expense", "error", err)
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over expenses", "error", err)
		return nil, fmt.Errorf("error iterating over expenses: %w", err)
	}

	return expenses, nil
}

// Sum totals the amounts of the owner's expenses matching the filter
func (r *ExpenseRepository) Sum(ctx context.Context, filter expense.Filter) (decimal.Decimal, error) {
	where, args := expenseWhere(filter)
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE ` + where

	var total decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to sum expenses", "user_id", filter.UserID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}

	return total, nil
}

// Update modifies an expense with optimistic locking. exp.Version must
// already be bumped.
func (r *ExpenseRepository) Update(ctx context.Context, exp *expense.Expense) error {
	metadata, err := marshalMetadata(exp.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode expense metadata: %w", err)
	}

	query := `
		UPDATE expenses
		SET amount = $1, credit = $2, category = $3, note = $4, metadata = $5, group_id = $6, version = $7, updated_at = $8
		WHERE id = $9 AND version = $10
	`

	result, err := r.querier.Exec(ctx, query,
		exp.Amount,
		exp.Credit,
		exp.Category,
		exp.Note,
		metadata,
		exp.GroupID,
		exp.Version,
		exp.UpdatedAt,
		exp.ID,
		exp.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update expense", "id", exp.ID.String(), "error", err)
		return fmt.Errorf("failed to update expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return expense.ErrConcurrentModification{ExpenseID: exp.ID}
	}

	return nil
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM expenses
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete expense", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return expense.ErrExpenseNotFound{ExpenseID: id}
	}

	return nil
}

func expenseWhere(filter expense.Filter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{filter.UserID}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

func scanExpense(row pgx.Row) (*expense.Expense, error) {
	var (
		exp      expense.Expense
		metadata []byte
	)
	err := row.Scan(
		&exp.ID,
		&exp.UserID,
		&exp.Amount,
		&exp.Credit,
		&exp.Category,
		&exp.Note,
		&metadata,
		&exp.GroupID,
		&exp.CounterpartyID,
		&exp.Version,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &exp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode expense metadata: %w", err)
		}
	}
	return &exp, nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}
