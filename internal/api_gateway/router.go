package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shared-expense-ledger/internal/api_gateway/handler"
	"github.com/shared-expense-ledger/internal/api_gateway/middleware"
)

// handlers groups the HTTP handlers mounted by setupRouter
type handlers struct {
	expense        *handler.ExpenseHandler
	settlement     *handler.SettlementHandler
	debt           *handler.DebtHandler
	reconciliation *handler.ReconciliationHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints, all scoped to the caller in X-User-ID
	v1 := r.Group("/api/v1", middleware.UserID())
	{
		expenses := v1.Group("/expenses")
		{
			expenses.POST("", h.expense.Create)
			expenses.GET("", h.expense.List)
			expenses.GET("/sum", h.expense.Sum)
			expenses.GET("/:id", h.expense.GetByID)
			expenses.PATCH("/:id", h.expense.Update)
			expenses.DELETE("/:id", h.expense.Delete)
		}

		settlements := v1.Group("/settlements")
		{
			settlements.GET("", h.settlement.List)
			settlements.POST("", h.settlement.Record)
		}

		debts := v1.Group("/debts")
		{
			debts.POST("", h.debt.Create)
			debts.GET("", h.debt.Find)
			debts.GET("/:id", h.debt.GetByID)
			debts.PUT("/:id", h.debt.Update)
			debts.DELETE("/:id", h.debt.Delete)
		}

		v1.GET("/reconciliations", h.reconciliation.ListByExpense)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
