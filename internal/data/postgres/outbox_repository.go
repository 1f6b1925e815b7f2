package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/platform/persistence"
)

const outboxColumns = `id, event_id, aggregate_id, event_type, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository keeps reconciliation events in ledger_outbox. Inserts run
// in the caller's transaction so an event exists only if the ledger write
// that produced it committed.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO ledger_outbox (event_id, aggregate_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.EventID,
		message.AggregateID,
		message.EventType,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to enqueue reconciliation event",
			"event_id", message.EventID.String(),
			"expense_id", message.AggregateID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetPending returns up to limit PENDING messages, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM ledger_outbox
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to load pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*outbox.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE ledger_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`
	return r.touch(ctx, id, "update outbox message status", query, status, time.Now().UTC(), id)
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE ledger_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`
	return r.touch(ctx, id, "increment outbox message attempts", query, time.Now().UTC(), id)
}

// touch runs a single-row update and maps zero affected rows to ErrMessageNotFound
func (r *OutboxRepository) touch(ctx context.Context, id int64, action, query string, args ...any) error {
	tag, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Outbox update failed", "action", action, "id", id, "error", err)
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	query := `
		SELECT ` + outboxColumns + `
		FROM ledger_outbox
		WHERE event_id = $1
	`

	message, err := scanMessage(r.querier.QueryRow(ctx, query, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, outbox.ErrMessageNotFound{EventID: eventID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox message for event %s: %w", eventID, err)
	}
	return message, nil
}

func scanMessage(row pgx.Row) (*outbox.Message, error) {
	var m outbox.Message
	err := row.Scan(
		&m.ID,
		&m.EventID,
		&m.AggregateID,
		&m.EventType,
		&m.Payload,
		&m.Status,
		&m.Attempts,
		&m.CreatedAt,
		&m.LastAttemptAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
