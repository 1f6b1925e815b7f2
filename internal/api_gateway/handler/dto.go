package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/reconciliation"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader lets clients retry create requests safely
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateExpenseRequest represents a request to record an expense, optionally
// split with participants of a group
type CreateExpenseRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Credit         bool            `json:"credit"`
	Category       string          `json:"category" binding:"required"`
	Note           string          `json:"note"`
	Metadata       map[string]any  `json:"metadata"`
	GroupID        string          `json:"group_id" binding:"omitempty,uuid"`
	ParticipantIDs []string        `json:"participant_ids" binding:"omitempty,dive,uuid"`
}

// UpdateExpenseRequest is a partial update. participant_ids replaces the split
// when present, an empty list removes it.
type UpdateExpenseRequest struct {
	Amount         *decimal.Decimal `json:"amount"`
	Credit         *bool            `json:"credit"`
	Category       *string          `json:"category"`
	Note           *string          `json:"note"`
	Metadata       map[string]any   `json:"metadata"`
	GroupID        *string          `json:"group_id" binding:"omitempty,uuid"`
	ParticipantIDs *[]string        `json:"participant_ids"`
}

// ListExpensesQuery represents the filters of the expense listing
type ListExpensesQuery struct {
	Category  string `form:"category"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit" binding:"min=0,max=1000"`
	Offset    int    `form:"offset" binding:"min=0"`
	OrderDesc *bool  `form:"order_desc"`
}

// RecordSettlementRequest represents a payment between two users
type RecordSettlementRequest struct {
	PayerID     string          `json:"payer_id" binding:"required,uuid"`
	RecipientID string          `json:"recipient_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
}

// CreateDebtRequest represents a manual debt record
type CreateDebtRequest struct {
	GroupID    string          `json:"group_id" binding:"required,uuid"`
	CreditorID string          `json:"creditor_id" binding:"required,uuid"`
	DebtorID   string          `json:"debtor_id" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note"`
}

// UpdateDebtRequest reassigns a manual debt record
type UpdateDebtRequest struct {
	CreditorID string          `json:"creditor_id" binding:"required,uuid"`
	DebtorID   string          `json:"debtor_id" binding:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"`
}

// FindDebtsQuery represents the filters of the debt record search
type FindDebtsQuery struct {
	GroupIDs   []string `form:"group_id" binding:"omitempty,dive,uuid"`
	CreditorID string   `form:"creditor_id" binding:"omitempty,uuid"`
	DebtorID   string   `form:"debtor_id" binding:"omitempty,uuid"`
	Limit      int      `form:"limit" binding:"min=0,max=1000"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Amount         string         `json:"amount"`
	Credit         bool           `json:"credit"`
	Category       string         `json:"category"`
	Note           string         `json:"note,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	GroupID        *string        `json:"group_id,omitempty"`
	CounterpartyID *string        `json:"counterparty_id,omitempty"`
	Version        int            `json:"version"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// DebtRecordResponse represents a debt record in API responses
type DebtRecordResponse struct {
	ID         string  `json:"id"`
	GroupID    string  `json:"group_id"`
	CreditorID string  `json:"creditor_id"`
	DebtorID   string  `json:"debtor_id"`
	Amount     string  `json:"amount"`
	Note       string  `json:"note,omitempty"`
	ExpenseID  *string `json:"expense_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// CreateExpenseResponse is returned by expense creation
type CreateExpenseResponse struct {
	Expense     ExpenseResponse      `json:"expense"`
	DebtRecords []DebtRecordResponse `json:"debt_records"`
	Outcome     shared.Outcome       `json:"outcome"`
	Warnings    []shared.Warning     `json:"warnings,omitempty"`
	Replayed    bool                 `json:"replayed,omitempty"`
}

// UpdateExpenseResponse is returned by expense edits
type UpdateExpenseResponse struct {
	Expense     ExpenseResponse      `json:"expense"`
	DebtRecords []DebtRecordResponse `json:"debt_records"`
	State       ledger.SplitState    `json:"state"`
	Outcome     shared.Outcome       `json:"outcome"`
	Warnings    []shared.Warning     `json:"warnings,omitempty"`
}

// DeleteExpenseResponse lists what an expense delete removed
type DeleteExpenseResponse struct {
	ExpenseID        string   `json:"expense_id"`
	RemovedRecordIDs []string `json:"removed_record_ids"`
}

// SumResponse is the total of the matching expenses
type SumResponse struct {
	Total string `json:"total"`
}

// LogicalSplitResponse represents one reconstructed split
type LogicalSplitResponse struct {
	CreditorID string   `json:"creditor_id"`
	GroupID    string   `json:"group_id"`
	DebtorIDs  []string `json:"debtor_ids"`
	PerPerson  string   `json:"per_person"`
	Total      string   `json:"total"`
	Timestamp  string   `json:"timestamp"`
	RecordIDs  []string `json:"record_ids"`
	Note       string   `json:"note,omitempty"`
	ExpenseID  *string  `json:"expense_id,omitempty"`
	Source     string   `json:"source"`
	Flags      []string `json:"flags,omitempty"`
}

// BalanceResponse represents a user's position
type BalanceResponse struct {
	UserID string `json:"user_id"`
	Owed   string `json:"owed"`
	Owing  string `json:"owing"`
	Net    string `json:"net"`
}

// GroupBalanceResponse is a balance within one group
type GroupBalanceResponse struct {
	GroupID string `json:"group_id"`
	BalanceResponse
}

// SettlementsResponse is the settlement overview of a user
type SettlementsResponse struct {
	Splits  []LogicalSplitResponse `json:"splits"`
	Balance BalanceResponse        `json:"balance"`
	Groups  []GroupBalanceResponse `json:"groups"`
}

// SettlementResponse represents both sides of a recorded settlement
type SettlementResponse struct {
	Amount           string          `json:"amount"`
	PayerExpense     ExpenseResponse `json:"payer_expense"`
	RecipientExpense ExpenseResponse `json:"recipient_expense"`
	Replayed         bool            `json:"replayed,omitempty"`
}

// ReconciliationTaskResponse represents a reconciler task
type ReconciliationTaskResponse struct {
	EventID       string `json:"event_id"`
	Kind          string `json:"kind"`
	ExpenseID     string `json:"expense_id"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	ProcessedAt   string `json:"processed_at,omitempty"`
}

// PaginationParams represents offset pagination for list endpoints
type PaginationParams struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=1000"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func mapExpenseToResponse(exp *expense.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:             exp.ID.String(),
		UserID:         exp.UserID.String(),
		Amount:         shared.FormatAmount(exp.Amount),
		Credit:         exp.Credit,
		Category:       string(exp.Category),
		Note:           exp.Note,
		Metadata:       exp.Metadata,
		GroupID:        optionalID(exp.GroupID),
		CounterpartyID: optionalID(exp.CounterpartyID),
		Version:        exp.Version,
		CreatedAt:      formatTime(exp.CreatedAt),
		UpdatedAt:      formatTime(exp.UpdatedAt),
	}
}

func mapExpensesToResponse(expenses []*expense.Expense) []ExpenseResponse {
	out := make([]ExpenseResponse, 0, len(expenses))
	for _, exp := range expenses {
		out = append(out, mapExpenseToResponse(exp))
	}
	return out
}

func mapRecordToResponse(record *debt.DebtRecord) DebtRecordResponse {
	return DebtRecordResponse{
		ID:         record.ID.String(),
		GroupID:    record.GroupID.String(),
		CreditorID: record.CreditorID.String(),
		DebtorID:   record.DebtorID.String(),
		Amount:     shared.FormatAmount(record.Amount),
		Note:       record.Note,
		ExpenseID:  optionalID(record.ExpenseID),
		CreatedAt:  formatTime(record.CreatedAt),
		UpdatedAt:  formatTime(record.UpdatedAt),
	}
}

func mapRecordsToResponse(records []*debt.DebtRecord) []DebtRecordResponse {
	out := make([]DebtRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, mapRecordToResponse(r))
	}
	return out
}

func mapBalanceToResponse(b ledger.Balance) BalanceResponse {
	return BalanceResponse{
		UserID: b.UserID.String(),
		Owed:   shared.FormatAmount(b.Owed),
		Owing:  shared.FormatAmount(b.Owing),
		Net:    shared.FormatAmount(b.Net),
	}
}

func mapOverviewToResponse(overview *ledger.Overview) SettlementsResponse {
	resp := SettlementsResponse{
		Splits:  make([]LogicalSplitResponse, 0, len(overview.Splits)),
		Balance: mapBalanceToResponse(overview.Balance),
		Groups:  make([]GroupBalanceResponse, 0, len(overview.Groups)),
	}
	for _, s := range overview.Splits {
		split := LogicalSplitResponse{
			CreditorID: s.CreditorID.String(),
			GroupID:    s.GroupID.String(),
			DebtorIDs:  idStrings(s.DebtorIDs),
			PerPerson:  shared.FormatAmount(s.PerPerson),
			Total:      shared.FormatAmount(s.Total),
			Timestamp:  formatTime(s.Timestamp),
			RecordIDs:  idStrings(s.RecordIDs),
			Note:       s.Note,
			ExpenseID:  optionalID(s.ExpenseID),
			Source:     string(s.Source),
		}
		for _, f := range s.Flags {
			split.Flags = append(split.Flags, string(f))
		}
		resp.Splits = append(resp.Splits, split)
	}
	for _, g := range overview.Groups {
		resp.Groups = append(resp.Groups, GroupBalanceResponse{
			GroupID:         g.GroupID.String(),
			BalanceResponse: mapBalanceToResponse(g.Balance),
		})
	}
	return resp
}

func mapSettlementToResponse(s *ledger.Settlement, replayed bool) SettlementResponse {
	return SettlementResponse{
		Amount:           shared.FormatAmount(s.Amount()),
		PayerExpense:     mapExpenseToResponse(s.PayerExpense),
		RecipientExpense: mapExpenseToResponse(s.RecipientExpense),
		Replayed:         replayed,
	}
}

func mapTaskToResponse(task *reconciliation.Task) ReconciliationTaskResponse {
	resp := ReconciliationTaskResponse{
		EventID:       task.EventID.String(),
		Kind:          string(task.Kind),
		ExpenseID:     task.ExpenseID.String(),
		Status:        string(task.Status),
		Attempts:      task.Attempts,
		FailureReason: task.FailureReason,
		CreatedAt:     formatTime(task.CreatedAt),
	}
	if task.ProcessedAt != nil {
		resp.ProcessedAt = formatTime(*task.ProcessedAt)
	}
	return resp
}
