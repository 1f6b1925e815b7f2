package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
)

// SettlementServiceImpl implements the SettlementService interface
type SettlementServiceImpl struct {
	store       ledger.Store
	grouping    *ledger.GroupingEngine
	recorder    *ledger.SettlementRecorder
	idempotency idempotency.Store
	logger      *slog.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(logger *slog.Logger, store ledger.Store, grouping *ledger.GroupingEngine, keys idempotency.Store) SettlementService {
	return &SettlementServiceImpl{
		store:       store,
		grouping:    grouping,
		recorder:    ledger.NewSettlementRecorder(logger),
		idempotency: keys,
		logger:      logger,
	}
}

func (s *SettlementServiceImpl) ListSettlementsForUser(ctx context.Context, userID uuid.UUID, groupIDs []uuid.UUID) (*ledger.Overview, error) {
	overview, err := s.grouping.Overview(ctx, s.store, userID, groupIDs)
	if err != nil {
		s.logger.Error("Failed to build settlement overview", "user_id", userID.String(), "error", err)
		return nil, err
	}
	return overview, nil
}

func (s *SettlementServiceImpl) RecordSettlement(ctx context.Context, req ledger.SettlementRequest, idempotencyKey string) (*ledger.Settlement, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	var settlement *ledger.Settlement
	ids, replayed, err := runIdempotent(ctx, s.logger, s.idempotency, scopeRecordSettlement, req.AuthorizingUserID, idempotencyKey, func() ([]uuid.UUID, error) {
		var err error
		settlement, err = s.recorder.Record(ctx, s.store, req)
		if err != nil {
			return nil, err
		}
		return []uuid.UUID{settlement.PayerExpense.ID, settlement.RecipientExpense.ID}, nil
	})
	if err != nil {
		return nil, false, err
	}
	if !replayed {
		return settlement, false, nil
	}

	if len(ids) != 2 {
		return nil, false, fmt.Errorf("idempotency key %q has %d stored expenses, want 2", idempotencyKey, len(ids))
	}
	payerSide, err := s.store.Expenses().GetByID(ctx, ids[0])
	if err != nil {
		return nil, false, err
	}
	recipientSide, err := s.store.Expenses().GetByID(ctx, ids[1])
	if err != nil {
		return nil, false, err
	}
	if payerSide.UserID != req.AuthorizingUserID && recipientSide.UserID != req.AuthorizingUserID {
		s.logger.Warn("Idempotency key replayed a settlement of other users",
			"idempotency_key", idempotencyKey, "user_id", req.AuthorizingUserID.String())
		return nil, false, shared.NotFoundError{Resource: "settlement", ID: idempotencyKey}
	}
	return &ledger.Settlement{PayerExpense: payerSide, RecipientExpense: recipientSide}, true, nil
}
