// Package debt holds DebtRecord, the ledger's atomic "debtor owes creditor"
// fact.
package debt

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrSelfDebt      = errors.New("creditor and debtor must differ")
	ErrMissingGroup  = errors.New("group id is required")
	ErrMissingParty  = errors.New("creditor and debtor are required")
)

// DebtRecord states that DebtorID owes CreditorID Amount within GroupID
type DebtRecord struct {
	ID         uuid.UUID       `json:"id"`
	GroupID    uuid.UUID       `json:"group_id"`
	CreditorID uuid.UUID       `json:"creditor_id"`
	DebtorID   uuid.UUID       `json:"debtor_id"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	ExpenseID  *uuid.UUID      `json:"expense_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewDebtRecord validates and builds a record without an expense reference
func NewDebtRecord(groupID, creditorID, debtorID uuid.UUID, amount decimal.Decimal, note string) (*DebtRecord, error) {
	if err := validate(groupID, creditorID, debtorID, amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &DebtRecord{
		ID:         uuid.New(),
		GroupID:    groupID,
		CreditorID: creditorID,
		DebtorID:   debtorID,
		Amount:     amount.Round(shared.InternalPrecision),
		Note:       note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Reassign changes parties and amount of a manual record
func (r *DebtRecord) Reassign(creditorID, debtorID uuid.UUID, amount decimal.Decimal) error {
	if err := validate(r.GroupID, creditorID, debtorID, amount); err != nil {
		return err
	}
	r.CreditorID = creditorID
	r.DebtorID = debtorID
	r.Amount = amount.Round(shared.InternalPrecision)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Linked reports whether the record was derived from an expense
func (r *DebtRecord) Linked() bool {
	return r.ExpenseID != nil
}

// Involves reports whether userID is creditor or debtor
func (r *DebtRecord) Involves(userID uuid.UUID) bool {
	return r.CreditorID == userID || r.DebtorID == userID
}

func validate(groupID, creditorID, debtorID uuid.UUID, amount decimal.Decimal) error {
	if groupID == uuid.Nil {
		return shared.NewValidationError("group_id", ErrMissingGroup.Error())
	}
	if creditorID == uuid.Nil || debtorID == uuid.Nil {
		return shared.NewValidationError("creditor_id", ErrMissingParty.Error())
	}
	if creditorID == debtorID {
		return shared.NewValidationError("debtor_id", ErrSelfDebt.Error())
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", ErrInvalidAmount.Error())
	}
	return nil
}

// DistinctDebtors returns the debtors of records in first-seen order
func DistinctDebtors(records []*DebtRecord) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(records))
	debtors := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.DebtorID]; ok {
			continue
		}
		seen[r.DebtorID] = struct{}{}
		debtors = append(debtors, r.DebtorID)
	}
	return debtors
}

// IDs returns the record identifiers in order
func IDs(records []*DebtRecord) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}
