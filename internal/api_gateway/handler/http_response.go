package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shared-expense-ledger/internal/api_gateway/middleware"
	"github.com/shared-expense-ledger/internal/domain/expense"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/shared-expense-ledger/internal/ledger"
)

// Response is the envelope of every JSON body the gateway writes
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// MetaInfo describes one page of a listing
type MetaInfo struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
	Count  int `json:"count"`
}

func write(c *gin.Context, status int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, response)
}

func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	write(c, statusCode, Response{Data: data})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	write(c, statusCode, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, limit, offset, count int) {
	write(c, statusCode, Response{
		Data: data,
		Meta: &MetaInfo{Limit: limit, Offset: offset, Count: count},
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Missing or invalid X-User-ID header"
	}
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondWithServiceError maps an error returned by a service to its HTTP
// status. Store failures that survived the retry policy become 503 so
// clients know the request may be repeated with the same idempotency key.
func RespondWithServiceError(c *gin.Context, err error) {
	var (
		validation shared.ValidationError
		conflict   expense.ErrConcurrentModification
		storeErr   *shared.StoreError
		cascadeErr *ledger.CascadeDeleteError
	)

	switch {
	case errors.As(err, &cascadeErr):
		write(c, http.StatusInternalServerError, Response{Error: &ErrorInfo{
			Code:    "CASCADE_DELETE_FAILED",
			Message: "Expense was not deleted, its debt records are unchanged",
			Details: gin.H{
				"expense_id":           cascadeErr.ExpenseID.String(),
				"removed_record_ids":   idStrings(cascadeErr.Removed),
				"remaining_record_ids": idStrings(cascadeErr.Remaining),
			},
		}})
	case errors.As(err, &validation):
		RespondWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", validation.Error())
	case shared.IsNotFound(err):
		RespondWithError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &conflict), errors.Is(err, idempotency.ErrInProgress):
		RespondWithError(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &storeErr), shared.IsTimeout(err):
		RespondWithError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The ledger is temporarily unavailable, please retry")
	default:
		RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
	}
}
