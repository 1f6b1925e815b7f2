package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
	"github.com/shared-expense-ledger/internal/domain/debt"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// DebtHandler handles HTTP requests for debt records
type DebtHandler struct {
	debtService service.DebtService
	logger      *slog.Logger
}

// NewDebtHandler creates a new debt handler
func NewDebtHandler(logger *slog.Logger, debtService service.DebtService) *DebtHandler {
	return &DebtHandler{
		debtService: debtService,
		logger:      logger,
	}
}

// Create records a debt that is not derived from an expense
func (h *DebtHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	record, err := h.debtService.CreateDebt(c.Request.Context(), service.CreateDebtInput{
		UserID:     userID,
		GroupID:    uuid.MustParse(req.GroupID),
		CreditorID: uuid.MustParse(req.CreditorID),
		DebtorID:   uuid.MustParse(req.DebtorID),
		Amount:     req.Amount,
		Note:       req.Note,
	})
	if err != nil {
		h.logger.Error("Failed to create debt record", "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(record))
}

// GetByID returns one debt record
func (h *DebtHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "debt record")
	if !ok {
		return
	}

	record, err := h.debtService.GetDebt(c.Request.Context(), id)
	if err != nil {
		if !shared.IsNotFound(err) {
			h.logger.Error("Failed to get debt record", "record_id", id.String(), "error", err)
		}
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

// Find searches debt records by group, creditor and/or debtor. Passing both
// creditor_id and debtor_id returns the records between two users.
func (h *DebtHandler) Find(c *gin.Context) {
	var query FindDebtsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	groupIDs, err := parseIDs(query.GroupIDs)
	if err != nil {
		RespondBadRequest(c, "Invalid group ID: "+err.Error())
		return
	}
	filter := debt.Filter{GroupIDs: groupIDs, Limit: query.Limit}
	if filter.CreditorID, err = parseOptionalID(query.CreditorID); err != nil {
		RespondBadRequest(c, "Invalid creditor ID")
		return
	}
	if filter.DebtorID, err = parseOptionalID(query.DebtorID); err != nil {
		RespondBadRequest(c, "Invalid debtor ID")
		return
	}

	records, err := h.debtService.FindDebts(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to find debt records", "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapRecordsToResponse(records))
}

// Update reassigns a manual debt record
func (h *DebtHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "debt record")
	if !ok {
		return
	}

	var req UpdateDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	record, err := h.debtService.UpdateDebt(c.Request.Context(), id, service.UpdateDebtInput{
		CreditorID: uuid.MustParse(req.CreditorID),
		DebtorID:   uuid.MustParse(req.DebtorID),
		Amount:     req.Amount,
	})
	if err != nil {
		h.logger.Error("Failed to update debt record", "record_id", id.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

// Delete removes a manual debt record
func (h *DebtHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "debt record")
	if !ok {
		return
	}

	if err := h.debtService.DeleteDebt(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete debt record", "record_id", id.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondNoContent(c)
}
