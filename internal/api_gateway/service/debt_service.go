package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
)

// DebtServiceImpl implements the DebtService interface
type DebtServiceImpl struct {
	store  ledger.Store
	logger *slog.Logger
}

// NewDebtService creates a new debt service
func NewDebtService(logger *slog.Logger, store ledger.Store) DebtService {
	return &DebtServiceImpl{
		store:  store,
		logger: logger,
	}
}

func (s *DebtServiceImpl) CreateDebt(ctx context.Context, input CreateDebtInput) (*debt.DebtRecord, error) {
	record, err := debt.NewDebtRecord(input.GroupID, input.CreditorID, input.DebtorID, input.Amount, input.Note)
	if err != nil {
		return nil, err
	}
	if !record.Involves(input.UserID) {
		return nil, shared.NewValidationError("user_id", "only a party to the debt can record it")
	}

	if err := s.store.Debts().Create(ctx, record); err != nil {
		s.logger.Error("Failed to create debt record", "group_id", input.GroupID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Debt record created", "record_id", record.ID.String(), "group_id", record.GroupID.String())
	return record, nil
}

func (s *DebtServiceImpl) GetDebt(ctx context.Context, id uuid.UUID) (*debt.DebtRecord, error) {
	return s.store.Debts().GetByID(ctx, id)
}

func (s *DebtServiceImpl) FindDebts(ctx context.Context, filter debt.Filter) ([]*debt.DebtRecord, error) {
	if len(filter.GroupIDs) == 0 && filter.CreditorID == nil && filter.DebtorID == nil && filter.InvolvedID == nil {
		return nil, shared.NewValidationError("", "a group, creditor or debtor filter is required")
	}

	records, err := s.store.Debts().Find(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to find debt records", "error", err)
		return nil, err
	}
	if records == nil {
		records = []*debt.DebtRecord{}
	}
	return records, nil
}

func (s *DebtServiceImpl) UpdateDebt(ctx context.Context, id uuid.UUID, input UpdateDebtInput) (*debt.DebtRecord, error) {
	var record *debt.DebtRecord
	err := s.store.InTx(ctx, func(tx ledger.Store) error {
		var err error
		record, err = tx.Debts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.Linked() {
			return errLinkedRecord(record)
		}
		if err := record.Reassign(input.CreditorID, input.DebtorID, input.Amount); err != nil {
			return err
		}
		return tx.Debts().Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Debt record updated", "record_id", id.String())
	return record, nil
}

func (s *DebtServiceImpl) DeleteDebt(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx ledger.Store) error {
		record, err := tx.Debts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if record.Linked() {
			return errLinkedRecord(record)
		}
		return tx.Debts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Debt record deleted", "record_id", id.String())
	return nil
}

func errLinkedRecord(record *debt.DebtRecord) error {
	return shared.NewValidationError("expense_id",
		"record belongs to expense "+record.ExpenseID.String()+" and changes only with it")
}
