package components

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/data/memory"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/reconciler/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateRepairService(t *testing.T) {
	cfg := &config.Config{
		WorkerPool: config.WorkerPoolConfig{
			Size: 5,
		},
	}

	repairService, shutdown := CreateRepairService(memory.NewStore(), &MockTaskRepository{}, slog.Default(), cfg)
	defer shutdown()

	pool, ok := repairService.(*service.WorkerPoolRepairService)
	require.True(t, ok)
	assert.Equal(t, 5, pool.Capacity())
}

func TestCreateRepairService_RepairsThroughPool(t *testing.T) {
	cfg := &config.Config{WorkerPool: config.WorkerPoolConfig{Size: 2}}
	event := reconciliation.NewEvent(reconciliation.KindCascadeIncomplete, uuid.New(), nil, nil, "")

	repo := &MockTaskRepository{}
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("UpdateStatus", mock.Anything, event.EventID, reconciliation.StatusResolved, "expense deleted").Return(nil).Once()

	repairService, shutdown := CreateRepairService(memory.NewStore(), repo, slog.Default(), cfg)
	defer shutdown()

	assert.NoError(t, repairService.Repair(context.Background(), event))
	repo.AssertExpectations(t)
}
