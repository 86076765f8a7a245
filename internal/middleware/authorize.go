package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

var permissionDenied = gin.H{"detail": "You do not have permission to perform this action."}

// RequireInternalAdmin admits internal staff and superusers. It must run after Auth.
func RequireInternalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if !account.IsInternalAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, permissionDenied)
			return
		}
		c.Next()
	}
}
