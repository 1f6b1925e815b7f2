package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
)

// ReconciliationHandler exposes the reconciler's task log
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// ListByExpense returns the repair tasks raised for an expense
func (h *ReconciliationHandler) ListByExpense(c *gin.Context) {
	expenseID, err := uuid.Parse(c.Query("expense_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid expense ID")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	tasks, err := h.reconciliationService.ListByExpense(c.Request.Context(), expenseID, pagination.Limit, pagination.Offset)
	if err != nil {
		h.logger.Error("Failed to list reconciliation tasks", "expense_id", expenseID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	response := make([]ReconciliationTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		response = append(response, mapTaskToResponse(task))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Limit, pagination.Offset, len(response))
}
