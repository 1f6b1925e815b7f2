package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

const debtColumns = `id, group_id, creditor_id, debtor_id, amount, note, expense_id, created_at, updated_at`

// DebtRepository implements the debt.Repository interface for PostgreSQL
type DebtRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Create inserts a record and refreshes it from the stored row
func (r *DebtRepository) Create(ctx context.Context, record *debt.DebtRecord) error {
	query := `
		INSERT INTO debt_records (id, group_id, creditor_id, debtor_id, amount, note, expense_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + debtColumns

	stored, err := scanRecord(r.querier.QueryRow(ctx, query,
		record.ID,
		record.GroupID,
		record.CreditorID,
		record.DebtorID,
		record.Amount,
		record.Note,
		record.ExpenseID,
		record.CreatedAt,
		record.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Failed to create debt record",
			"id", record.ID.String(),
			"debtor_id", record.DebtorID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create debt record: %w", err)
	}

	*record = *stored
	return nil
}

// GetByID retrieves a debt record by its ID
func (r *DebtRepository) GetByID(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error) {
	query := `
		SELECT ` + debtColumns + `
		FROM debt_records
		WHERE id = $1
	`

	record, err := scanRecord(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, debt.ErrRecordNotFound{RecordID: id}
		}
		r.logger.Error("Failed to get debt record by ID", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get debt record: %w", err)
	}

	return record, nil
}

// Find returns records matching the filter, newest first
func (r *DebtRepository) Find(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error) {
	where, args := debtWhere(filter)
	query := `
		SELECT ` + debtColumns + `
		FROM debt_records`
	if where != "" {
		query += `
		WHERE ` + where
	}
	query += `
		ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(`
		LIMIT $%d`, len(args))
	}

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to find debt records", "error", err)
		return nil, fmt.Errorf("failed to find debt records: %w", err)
	}
	return r.collect(rows)
}

// Update rewrites parties, amount and note of a record
func (r *DebtRepository) Update(ctx context.Context, record *debt.DebtRecord) error {
	query := `
		UPDATE debt_records
		SET creditor_id = $1, debtor_id = $2, amount = $3, note = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		record.CreditorID,
		record.DebtorID,
		record.Amount,
		record.Note,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update debt record", "id", record.ID.String(), "error", err)
		return fmt.Errorf("failed to update debt record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return debt.ErrRecordNotFound{RecordID: record.ID}
	}

	return nil
}

// Delete removes a single record
func (r *DebtRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM debt_records
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete debt record", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete debt record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return debt.ErrRecordNotFound{RecordID: id}
	}

	return nil
}

// UpdateAmountByExpense sets amount on every record of the expense
func (r *DebtRepository) UpdateAmountByExpense(ctx context.Context, expenseID uuid.UUID, amount decimal.Decimal) ([]*debt.DebtRecord, error) {
	query := `
		UPDATE debt_records
		SET amount = $1, updated_at = $2
		WHERE expense_id = $3
		RETURNING ` + debtColumns

	rows, err := r.querier.Query(ctx, query, amount, time.Now().UTC(), expenseID)
	if err != nil {
		r.logger.Error("Failed to update debt record amounts", "expense_id", expenseID.String(), "error", err)
		return nil, fmt.Errorf("failed to update debt record amounts: %w", err)
	}
	return r.collect(rows)
}

// UpdateNoteByExpense sets note on every record of the expense
func (r *DebtRepository) UpdateNoteByExpense(ctx context.Context, expenseID uuid.UUID, note string) ([]*debt.DebtRecord, error) {
	query := `
		UPDATE debt_records
		SET note = $1, updated_at = $2
		WHERE expense_id = $3
		RETURNING ` + debtColumns

	rows, err := r.querier.Query(ctx, query, note, time.Now().UTC(), expenseID)
	if err != nil {
		r.logger.Error("Failed to update debt record notes", "expense_id", expenseID.String(), "error", err)
		return nil, fmt.Errorf("failed to update debt record notes: %w", err)
	}
	return r.collect(rows)
}

// DeleteByExpense removes every record of the expense and returns them
func (r *DebtRepository) DeleteByExpense(ctx context.Context, expenseID uuid.UUID) ([]*debt.DebtRecord, error) {
	query := `
		DELETE FROM debt_records
		WHERE expense_id = $1
		RETURNING ` + debtColumns

	rows, err := r.querier.Query(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to delete debt records", "expense_id", expenseID.String(), "error", err)
		return nil, fmt.Errorf("failed to delete debt records: %w", err)
	}
	return r.collect(rows)
}

func (r *DebtRepository) collect(rows pgx.Rows) ([]*debt.DebtRecord, error) {
	defer rows.Close()

	var records []*debt.DebtRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			r.logger.Error("Failed to scan debt record", "error", err)
			return nil, fmt.Errorf("failed to scan debt record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over debt records", "error", err)
		return nil, fmt.Errorf("error iterating over debt records: %w", err)
	}

	return records, nil
}

func debtWhere(filter debt.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(filter.GroupIDs) > 0 {
		ids := make([]string, 0, len(filter.GroupIDs))
		for _, id := range filter.GroupIDs {
			ids = append(ids, id.String())
		}
		add("group_id = ANY($%d::uuid[])", ids)
	}
	if filter.CreditorID != nil {
		add("creditor_id = $%d", *filter.CreditorID)
	}
	if filter.DebtorID != nil {
		add("debtor_id = $%d", *filter.DebtorID)
	}
	if filter.InvolvedID != nil {
		args = append(args, *filter.InvolvedID)
		conds = append(conds, fmt.Sprintf("(creditor_id = $%d OR debtor_id = $%d)", len(args), len(args)))
	}
	if filter.ExpenseID != nil {
		add("expense_id = $%d", *filter.ExpenseID)
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("created_at <= $%d", *filter.Until)
	}

	return strings.Join(conds, " AND "), args
}

func scanRecord(row pgx.Row) (*debt.DebtRecord, error) {
	var record debt.DebtRecord
	err := row.Scan(
		&record.ID,
		&record.GroupID,
		&record.CreditorID,
		&record.DebtorID,
		&record.Amount,
		&record.Note,
		&record.ExpenseID,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
