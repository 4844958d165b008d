package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const OperatorKeyHeader = "X-Operator-Key"

// RequireOperatorKey guards administrative endpoints with a shared key
// checked against its bcrypt hash. An empty hash disables the endpoint.
func RequireOperatorKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "Operator endpoints are disabled"})
			return
		}
		key := c.GetHeader(OperatorKeyHeader)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			Log(c).Warn("operator key rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Invalid operator key"})
			return
		}
		c.Next()
	}
}
