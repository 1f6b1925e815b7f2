package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitSource tells how the records of a logical split were clustered
type SplitSource string

const (
	SourceExpenseReference SplitSource = "EXPENSE_REFERENCE"
	SourceTimeWindow       SplitSource = "TIME_WINDOW"
)

// QualityFlag marks a disagreement between the stored expense reference and
// the time-window heuristic, or inconsistent records inside one cluster.
type QualityFlag string

const (
	FlagMixedAmounts       QualityFlag = "MIXED_AMOUNTS"
	FlagSpreadBeyondWindow QualityFlag = "SPREAD_BEYOND_WINDOW"
	FlagWindowOverlap      QualityFlag = "WINDOW_OVERLAP"
)

// LogicalSplit is the reconstruction of one original split event
type LogicalSplit struct {
	CreditorID uuid.UUID       `json:"creditor_id"`
	GroupID    uuid.UUID       `json:"group_id"`
	DebtorIDs  []uuid.UUID     `json:"debtor_ids"`
	PerPerson  decimal.Decimal `json:"per_person"`
	Total      decimal.Decimal `json:"total"`
	Timestamp  time.Time       `json:"timestamp"`
	RecordIDs  []uuid.UUID     `json:"record_ids"`
	Note       string          `json:"note,omitempty"`
	ExpenseID  *uuid.UUID      `json:"expense_id,omitempty"`
	Source     SplitSource     `json:"source"`
	Flags      []QualityFlag   `json:"flags,omitempty"`
}
