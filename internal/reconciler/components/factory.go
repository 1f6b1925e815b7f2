package components

import (
	"log/slog"

	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shared-expense-ledger/internal/reconciler/service"
)

// CreateRepairService wires the repair service and runs it on a worker pool.
// The returned shutdown func releases the pool.
func CreateRepairService(
	store ledger.Store,
	taskRepo reconciliation.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) (service.RepairService, func()) {
	baseService := service.NewRepairService(
		store,
		ledger.NewCascadeUpdater(logger.With("component", "cascade")),
		NewTaskTracker(taskRepo, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolRepairService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, func() {}
	}

	logger.Info("Created worker pool repair service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, workerPoolService.Shutdown
}
