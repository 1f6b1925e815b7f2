package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/reconciler/service"
)

type TaskTrackerImpl struct {
	taskRepo reconciliation.Repository
	logger   *slog.Logger
}

func NewTaskTracker(taskRepo reconciliation.Repository, logger *slog.Logger) service.TaskTracker {
	return &TaskTrackerImpl{
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// Start records a delivery of the event. The returned task reflects what is
// stored, so a redelivery sees the status of the earlier attempt.
func (r *TaskTrackerImpl) Start(ctx context.Context, event *reconciliation.Event) (*reconciliation.Task, error) {
	task := reconciliation.NewTask(event)
	if err := r.taskRepo.Upsert(ctx, task); err != nil {
		return nil, err
	}

	r.logger.Debug("Tracking reconciliation task",
		"event_id", event.EventID.String(),
		"status", string(task.Status),
		"attempts", task.Attempts,
	)
	return task, nil
}

func (r *TaskTrackerImpl) Resolve(ctx context.Context, event *reconciliation.Event, note string) error {
	return r.setStatus(ctx, event, reconciliation.StatusResolved, note)
}

func (r *TaskTrackerImpl) Fail(ctx context.Context, event *reconciliation.Event, reason string) error {
	return r.setStatus(ctx, event, reconciliation.StatusFailed, reason)
}

func (r *TaskTrackerImpl) setStatus(ctx context.Context, event *reconciliation.Event, status reconciliation.Status, reason string) error {
	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	err := r.taskRepo.UpdateStatus(ctx, event.EventID, status, reason)
	if errors.Is(err, reconciliation.ErrTaskNotFound{}) {
		// The task document was lost between Start and now; create it again.
		logger.Warn("Reconciliation task missing, recreating", "event_id", event.EventID.String())
		if upsertErr := r.taskRepo.Upsert(ctx, reconciliation.NewTask(event)); upsertErr != nil {
			logger.Error("Failed to recreate reconciliation task", "event_id", event.EventID.String(), "error", upsertErr)
			return upsertErr
		}
		err = r.taskRepo.UpdateStatus(ctx, event.EventID, status, reason)
	}
	if err != nil {
		logger.Error("Failed to update reconciliation task",
			"event_id", event.EventID.String(),
			"status", string(status),
			"error", err,
		)
		return err
	}

	logger.Info("Reconciliation task updated",
		"event_id", event.EventID.String(),
		"expense_id", event.ExpenseID.String(),
		"status", string(status),
	)
	return nil
}
