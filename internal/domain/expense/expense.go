// Package expense holds the Expense entity: one spending or income event that
// may be split into debt records.
package expense

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCategory    = errors.New("unknown expense category")
	ErrMissingOwner       = errors.New("expense owner is required")
	ErrSettlementCategory = errors.New("settlement category is reserved for recorded settlements")
)

// Expense represents one spending (debit) or income (credit) event of a user
type Expense struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Credit         bool            `json:"credit"`
	Category       Category        `json:"category"`
	Note           string          `json:"note,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	GroupID        *uuid.UUID      `json:"group_id,omitempty"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewExpense validates the input and creates an expense owned by userID
func NewExpense(userID uuid.UUID, amount decimal.Decimal, credit bool, category Category, note string, metadata map[string]any) (*Expense, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user_id", ErrMissingOwner.Error())
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", ErrInvalidAmount.Error())
	}
	if !category.Valid() {
		return nil, shared.NewValidationError("category", ErrInvalidCategory.Error())
	}

	now := time.Now().UTC()
	return &Expense{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Credit:    credit,
		Category:  category,
		Note:      note,
		Metadata:  metadata,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SignedAmount is positive for inflows and negative for outflows
func (e *Expense) SignedAmount() decimal.Decimal {
	if e.Credit {
		return e.Amount
	}
	return e.Amount.Neg()
}

// IsSettlement reports whether the expense is one side of a recorded settlement
func (e *Expense) IsSettlement() bool {
	return e.Category == CategorySettlement
}

// IsGroupExpense reports whether the expense was split within a group
func (e *Expense) IsGroupExpense() bool {
	return e.GroupID != nil
}

// Changes is a partial update. Nil fields are left untouched; a non-nil
// ParticipantIDs (even empty) replaces the split.
type Changes struct {
	Amount         *decimal.Decimal
	Credit         *bool
	Category       *Category
	Note           *string
	Metadata       map[string]any
	ParticipantIDs []uuid.UUID
	GroupID        *uuid.UUID
}

// Empty reports whether no field is being changed
func (c Changes) Empty() bool {
	return c.Amount == nil && c.Credit == nil && c.Category == nil && c.Note == nil &&
		c.Metadata == nil && c.ParticipantIDs == nil && c.GroupID == nil
}

// ReplacesParticipants reports whether the split must be rebuilt
func (c Changes) ReplacesParticipants() bool {
	return c.ParticipantIDs != nil
}

// AmountChanged reports whether the amount differs from current
func (c Changes) AmountChanged(current decimal.Decimal) bool {
	return c.Amount != nil && !c.Amount.Equal(current)
}

// NoteChanged reports whether the note differs from current
func (c Changes) NoteChanged(current string) bool {
	return c.Note != nil && *c.Note != current
}

// Validate checks the changes on their own, before any lookup
func (c Changes) Validate() error {
	if c.Empty() {
		return shared.NewValidationError("", "no fields to update")
	}
	if c.Amount != nil && !c.Amount.IsPositive() {
		return shared.NewValidationError("amount", ErrInvalidAmount.Error())
	}
	if c.Category != nil {
		if !c.Category.Valid() {
			return shared.NewValidationError("category", ErrInvalidCategory.Error())
		}
		if *c.Category == CategorySettlement {
			return shared.NewValidationError("category", ErrSettlementCategory.Error())
		}
	}
	if c.GroupID != nil && c.ParticipantIDs == nil {
		return shared.NewValidationError("group_id", "group can only change together with participants")
	}
	return nil
}

// Apply writes the changes onto the expense and bumps its version
func (e *Expense) Apply(c Changes) {
	if c.Amount != nil {
		e.Amount = *c.Amount
	}
	if c.Credit != nil {
		e.Credit = *c.Credit
	}
	if c.Category != nil {
		e.Category = *c.Category
	}
	if c.Note != nil {
		e.Note = *c.Note
	}
	if c.Metadata != nil {
		e.Metadata = c.Metadata
	}
	if c.ParticipantIDs != nil {
		if len(c.ParticipantIDs) == 0 {
			e.GroupID = nil
		} else if c.GroupID != nil {
			groupID := *c.GroupID
			e.GroupID = &groupID
		}
	}
	e.Version++
	e.UpdatedAt = time.Now().UTC()
}
