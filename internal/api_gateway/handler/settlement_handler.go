package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/api_gateway/service"
	"github.com/shared-expense-ledger/internal/ledger"
)

// SettlementHandler handles HTTP requests for settlements and balances
type SettlementHandler struct {
	settlementService service.SettlementService
	logger            *slog.Logger
}

// NewSettlementHandler creates a new settlement handler
func NewSettlementHandler(logger *slog.Logger, settlementService service.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		logger:            logger,
	}
}

// List returns the logical splits of the requested groups together with the
// caller's balance. group_id may be repeated or comma separated.
func (h *SettlementHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	groupIDs, err := parseIDs(c.QueryArray("group_id"))
	if err != nil {
		RespondBadRequest(c, "Invalid group ID: "+err.Error())
		return
	}

	overview, err := h.settlementService.ListSettlementsForUser(c.Request.Context(), userID, groupIDs)
	if err != nil {
		h.logger.Error("Failed to list settlements", "user_id", userID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	RespondOK(c, mapOverviewToResponse(overview))
}

// Record stores a payment between payer and recipient. The caller must be
// one of them.
func (h *SettlementHandler) Record(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req RecordSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	settlement, replayed, err := h.settlementService.RecordSettlement(c.Request.Context(), ledger.SettlementRequest{
		PayerID:           uuid.MustParse(req.PayerID),
		RecipientID:       uuid.MustParse(req.RecipientID),
		Amount:            req.Amount,
		AuthorizingUserID: userID,
		Note:              req.Note,
	}, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		h.logger.Error("Failed to record settlement", "user_id", userID.String(), "error", err)
		RespondWithServiceError(c, err)
		return
	}

	if replayed {
		RespondOK(c, mapSettlementToResponse(settlement, true))
		return
	}
	RespondCreated(c, mapSettlementToResponse(settlement, false))
}
