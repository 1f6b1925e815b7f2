package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
)

// WorkerPoolRepairService runs repairs on a bounded ants pool
type WorkerPoolRepairService struct {
	baseService RepairService
	pool        *ants.Pool
	logger      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolRepairService(
	baseService RepairService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolRepairService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolRepairService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		inFlight:    make(map[string]chan error),
	}, nil
}

// Repair submits the event to the pool and blocks until a worker finished it,
// so the caller only commits the Kafka offset after the repair.
func (s *WorkerPoolRepairService) Repair(ctx context.Context, event *reconciliation.Event) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Submitting repair to worker pool",
		"event_id", event.EventID.String(),
		"expense_id", event.ExpenseID.String(),
	)

	resultChan := make(chan error, 1)
	eventID := event.EventID.String()
	s.mu.Lock()
	s.inFlight[eventID] = resultChan
	s.mu.Unlock()

	eventCopy := *event
	err := s.pool.Submit(func() {
		resultChan <- s.baseService.Repair(ctx, &eventCopy)

		s.mu.Lock()
		delete(s.inFlight, eventID)
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		delete(s.inFlight, eventID)
		s.mu.Unlock()

		logger.Error("Failed to submit repair to worker pool",
			"event_id", eventID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of repairs submitted and not yet finished
func (s *WorkerPoolRepairService) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Shutdown releases the pool; running repairs finish on their own.
func (s *WorkerPoolRepairService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolRepairService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolRepairService) Capacity() int {
	return s.pool.Cap()
}
