package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// UserIDHeader carries the caller's user id. Authentication happens
	// upstream; the value is trusted.
	UserIDHeader = "X-User-ID"

	// UserIDKey is the key used to store the user id in the gin context
	UserIDKey = "user_id"
)

// UserID middleware rejects requests without a valid X-User-ID header
func UserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		userID, err := uuid.Parse(raw)
		if raw == "" || err != nil || userID == uuid.Nil {
			response := gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "A valid " + UserIDHeader + " header is required",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the user id stored by the UserID middleware
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(UserIDKey); exists {
		if userID, ok := v.(uuid.UUID); ok {
			return userID, true
		}
	}
	return uuid.Nil, false
}
