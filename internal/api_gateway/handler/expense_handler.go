package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// ExpenseHandler handles HTTP requests for expense operations
type ExpenseHandler struct {
	expenseService service.ExpenseService
	logger         *slog.Logger
}

// NewExpenseHandler creates a new expense handler
func NewExpenseHandler(logger *slog.Logger, expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// Create records an expense and splits it with the given participants.
// A partially written split still answers 201, with outcome PARTIAL and warnings.
func (h *ExpenseHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	groupID, err := parseOptionalID(req.GroupID)
	if err != nil {
		RespondBadRequest(c, "Invalid group ID")
		return
	}
	participantIDs, err := parseIDs(req.ParticipantIDs)
	if err != nil {
		RespondBadRequest(c, "Invalid participant ID: "+err.Error())
		return
	}

	result, replayed, err := h.expenseService.CreateExpense(c.Request.Context(), service.CreateExpenseInput{
		UserID:         userID,
		Amount:         req.Amount,
		Credit:         req.Credit,
		Category:       expense.Category(req.Category),
		Note:           req.Note,
		Metadata:       req.Metadata,
		GroupID:        groupID,
		ParticipantIDs: participantIDs,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		h.logger.Error("Failed to create expense", "user_id", userID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	response := CreateExpenseResponse{
		Expense:     mapExpenseToResponse(result.Expense),
		DebtRecords: mapRecordsToResponse(result.Records),
		Outcome:     result.Outcome(),
		Warnings:    result.Warnings,
		Replayed:    replayed,
	}
	if replayed {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// GetByID returns one of the caller's expenses
func (h *ExpenseHandler) GetByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "expense")
	if !ok {
		return
	}

	exp, err := h.expenseService.GetExpense(c.Request.Context(), userID, id)
	if err != nil {
		if !shared.IsNotFound(err) {
			h.logger.Error("Failed to get expense", "expense_id", id.String(), "error", err)
		}
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapExpenseToResponse(exp))
}

// List returns the caller's expenses, newest first unless order_desc=false
func (h *ExpenseHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	filter.UserID = userID

	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list expenses", "user_id", userID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapExpensesToResponse(expenses), filter.Limit, filter.Offset, len(expenses))
}

// Sum returns the total amount of the caller's matching expenses
func (h *ExpenseHandler) Sum(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	filter.UserID = userID

	total, err := h.expenseService.SumExpenses(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to sum expenses", "user_id", userID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, SumResponse{Total: shared.FormatAmount(total)})
}

// Update applies a partial update and cascades it to the debt records
func (h *ExpenseHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "expense")
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	changes := expense.Changes{
		Amount:   req.Amount,
		Credit:   req.Credit,
		Note:     req.Note,
		Metadata: req.Metadata,
	}
	if req.Category != nil {
		category := expense.Category(*req.Category)
		changes.Category = &category
	}
	if req.GroupID != nil {
		groupID, err := parseOptionalID(*req.GroupID)
		if err != nil {
			RespondBadRequest(c, "Invalid group ID")
			return
		}
		changes.GroupID = groupID
	}
	if req.ParticipantIDs != nil {
		participantIDs, err := parseIDs(*req.ParticipantIDs)
		if err != nil {
			RespondBadRequest(c, "Invalid participant ID: "+err.Error())
			return
		}
		changes.ParticipantIDs = participantIDs
	}

	result, err := h.expenseService.UpdateExpense(c.Request.Context(), userID, id, changes)
	if err != nil {
		h.logger.Error("Failed to update expense", "expense_id", id.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, UpdateExpenseResponse{
		Expense:     mapExpenseToResponse(result.Expense),
		DebtRecords: mapRecordsToResponse(result.Records),
		State:       result.State,
		Outcome:     result.Outcome(),
		Warnings:    result.Warnings,
	})
}

// Delete removes the expense and every debt record derived from it
func (h *ExpenseHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "expense")
	if !ok {
		return
	}

	result, err := h.expenseService.DeleteExpense(c.Request.Context(), userID, id)
	if err != nil {
		h.logger.Error("Failed to delete expense", "expense_id", id.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, DeleteExpenseResponse{
		ExpenseID:        result.ExpenseID.String(),
		RemovedRecordIDs: idStrings(result.RemovedRecordIDs),
	})
}

func (h *ExpenseHandler) bindFilter(c *gin.Context) (expense.Filter, bool) {
	var query ListExpensesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return expense.Filter{}, false
	}

	filter := expense.Filter{
		Limit:     query.Limit,
		Offset:    query.Offset,
		OrderDesc: query.OrderDesc == nil || *query.OrderDesc,
	}
	if query.Category != "" {
		category := expense.Category(query.Category)
		filter.Category = &category
	}

	var err error
	if filter.StartDate, err = parseDate(query.StartDate, false); err != nil {
		RespondBadRequest(c, "Invalid start_date: "+err.Error())
		return expense.Filter{}, false
	}
	if filter.EndDate, err = parseDate(query.EndDate, true); err != nil {
		RespondBadRequest(c, "Invalid end_date: "+err.Error())
		return expense.Filter{}, false
	}
	return filter, true
}
