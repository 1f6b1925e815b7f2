package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

type internalError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Recovery reports panics through slog and answers with the API error envelope.
// gin's own recovery output is discarded so a panic is logged once.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		var body internalError
		body.Error.Code = "INTERNAL_SERVER_ERROR"
		body.Error.Message = "An internal server error occurred"
		body.CorrelationID = GetCorrelationID(c)

		logger.Error("Panic recovered",
			"error", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"correlation_id", body.CorrelationID,
			"stack", string(debug.Stack()),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}
