package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SettlementRequest is a payment from payer to recipient
type SettlementRequest struct {
	PayerID           uuid.UUID
	RecipientID       uuid.UUID
	Amount            decimal.Decimal
	AuthorizingUserID uuid.UUID
	Note              string
}

// Validate rejects malformed settlements before anything is written
func (r SettlementRequest) Validate() error {
	if r.PayerID == uuid.Nil || r.RecipientID == uuid.Nil {
		return shared.NewValidationError("payer_id", "payer and recipient are required")
	}
	if r.PayerID == r.RecipientID {
		return shared.NewValidationError("recipient_id", "payer and recipient must differ")
	}
	if !r.Amount.IsPositive() {
		return shared.NewValidationError("amount", "amount must be positive")
	}
	if r.AuthorizingUserID != r.PayerID && r.AuthorizingUserID != r.RecipientID {
		return shared.NewValidationError("user_id", "only the payer or the recipient can record a settlement")
	}
	return nil
}

// Settlement pairs the payer's debit with the recipient's credit
type Settlement struct {
	PayerExpense     *expense.Expense `json:"payer_expense"`
	RecipientExpense *expense.Expense `json:"recipient_expense"`
}

// Amount is the settled amount
func (s *Settlement) Amount() decimal.Decimal {
	return s.PayerExpense.Amount
}

// SettlementRecorder writes both sides of a settlement
type SettlementRecorder struct {
	logger *slog.Logger
}

func NewSettlementRecorder(logger *slog.Logger) *SettlementRecorder {
	return &SettlementRecorder{logger: logger}
}

// Record stores the payer's debit and the recipient's credit in one
// transaction. No debt records are touched.
func (s *SettlementRecorder) Record(ctx context.Context, store Store, req SettlementRequest) (*Settlement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With("payer_id", req.PayerID.String(), "recipient_id", req.RecipientID.String())
	if correlationID := shared.CorrelationIDFromContext(ctx); correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	now := time.Now().UTC()
	payerSide := settlementExpense(req.PayerID, req.RecipientID, req.Amount, false, req.Note, now)
	recipientSide := settlementExpense(req.RecipientID, req.PayerID, req.Amount, true, req.Note, now)

	err := store.InTx(ctx, func(tx Store) error {
		if err := tx.Expenses().Create(ctx, payerSide); err != nil {
			return fmt.Errorf("failed to create payer settlement expense: %w", err)
		}
		if err := tx.Expenses().Create(ctx, recipientSide); err != nil {
			return fmt.Errorf("failed to create recipient settlement expense: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to record settlement", "error", err)
		return nil, err
	}

	logger.Info("Settlement recorded", "amount", shared.FormatAmount(req.Amount))
	return &Settlement{PayerExpense: payerSide, RecipientExpense: recipientSide}, nil
}

func settlementExpense(owner, counterparty uuid.UUID, amount decimal.Decimal, credit bool, note string, at time.Time) *expense.Expense {
	other := counterparty
	return &expense.Expense{
		ID:             uuid.New(),
		UserID:         owner,
		Amount:         amount.Round(shared.InternalPrecision),
		Credit:         credit,
		Category:       expense.CategorySettlement,
		Note:           note,
		CounterpartyID: &other,
		Version:        1,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}
