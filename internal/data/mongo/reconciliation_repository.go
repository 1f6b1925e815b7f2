package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TaskCollectionName is the name of the reconciliation task collection in MongoDB
	TaskCollectionName = "reconciliation_tasks"
)

// ReconciliationRepository implements the reconciliation.Repository interface for MongoDB
type ReconciliationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReconciliationRepository creates a new MongoDB reconciliation task repository
func NewReconciliationRepository(logger *slog.Logger, db *mongo.Database) *ReconciliationRepository {
	return &ReconciliationRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index and the per-expense lookup index
func (r *ReconciliationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(TaskCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expense_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create reconciliation task indexes: %w", err)
	}
	return nil
}

// Upsert records a delivery of the task's event. The first delivery inserts the
// task; redeliveries only bump the attempt counter. task is refreshed from the
// stored document.
func (r *ReconciliationRepository) Upsert(ctx context.Context, task *reconciliation.Task) error {
	collection := r.db.Collection(TaskCollectionName)

	filter := bson.M{"event_id": task.EventID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"event_id":       task.EventID,
			"kind":           task.Kind,
			"expense_id":     task.ExpenseID,
			"status":         task.Status,
			"correlation_id": task.CorrelationID,
			"created_at":     task.CreatedAt,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored reconciliation.Task
	if err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		r.logger.Error("Failed to upsert reconciliation task",
			"event_id", task.EventID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert reconciliation task: %w", err)
	}

	*task = stored
	return nil
}

// GetByEventID retrieves the task tracking an event.
// Returns ErrTaskNotFound if the event was never received.
func (r *ReconciliationRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*reconciliation.Task, error) {
	collection := r.db.Collection(TaskCollectionName)

	var task reconciliation.Task
	err := collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrTaskNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get reconciliation task",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get reconciliation task: %w", err)
	}

	return &task, nil
}

// GetByExpenseID retrieves paginated tasks for an expense, newest first
func (r *ReconciliationRepository) GetByExpenseID(ctx context.Context, expenseID uuid.UUID, limit, offset int) ([]*reconciliation.Task, error) {
	collection := r.db.Collection(TaskCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"expense_id": expenseID}, opts)
	if err != nil {
		r.logger.Error("Failed to get reconciliation tasks",
			"expense_id", expenseID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get reconciliation tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []*reconciliation.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		r.logger.Error("Failed to decode reconciliation tasks",
			"expense_id", expenseID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode reconciliation tasks: %w", err)
	}

	return tasks, nil
}

// UpdateStatus sets the task's status, failure reason and processed timestamp.
// Returns ErrTaskNotFound if the task doesn't exist.
func (r *ReconciliationRepository) UpdateStatus(ctx context.Context, eventID uuid.UUID, status reconciliation.Status, reason string) error {
	collection := r.db.Collection(TaskCollectionName)

	filter := bson.M{"event_id": eventID}
	update := bson.M{
		"$set": bson.M{
			"status":         status,
			"failure_reason": reason,
			"processed_at":   time.Now().UTC(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update reconciliation task status",
			"event_id", eventID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update reconciliation task status: %w", err)
	}

	if result.MatchedCount == 0 {
		return reconciliation.ErrTaskNotFound{EventID: eventID}
	}

	return nil
}
