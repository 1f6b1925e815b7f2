package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("IncludesIDsSetLaterInTheChain", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := gin.New()
		router.Use(Logger(newBufferLogger(&logBuffer)), CorrelationID(), UserID())
		router.GET("/api/v1/expenses", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		userID := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses?limit=5", nil)
		req.Header.Set("User-Agent", "ledger-test")
		req.Header.Set(CorrelationIDHeader, "corr-42")
		req.Header.Set(UserIDHeader, userID.String())
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"method":"GET"`)
		assert.Contains(t, logOutput, `"path":"/api/v1/expenses?limit=5"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"user_agent":"ledger-test"`)
		assert.Contains(t, logOutput, `"correlation_id":"corr-42"`)
		assert.Contains(t, logOutput, `"user_id":"`+userID.String()+`"`)
	})

	t.Run("ClientErrorsLogAtWarn", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := gin.New()
		router.Use(Logger(newBufferLogger(&logBuffer)), CorrelationID(), UserID())
		router.GET("/api/v1/expenses", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, logBuffer.String(), `"level":"WARN"`)
		assert.Contains(t, logBuffer.String(), `"status":401`)
		assert.NotContains(t, logBuffer.String(), `"user_id"`)
	})

	t.Run("ServerErrorsLogAtError", func(t *testing.T) {
		var logBuffer bytes.Buffer
		router := gin.New()
		router.Use(Logger(newBufferLogger(&logBuffer)))
		router.POST("/boom", func(c *gin.Context) {
			c.Status(http.StatusServiceUnavailable)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/boom", nil))

		assert.Contains(t, logBuffer.String(), `"level":"ERROR"`)
		assert.Contains(t, logBuffer.String(), `"status":503`)
	})
}
