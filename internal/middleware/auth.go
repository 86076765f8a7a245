package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authhub/api/internal/models"
	"authhub/api/internal/service"
)

const currentAccountKey = "current_account"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.Account, error)
}

// Auth resolves a bearer access token to an active account and stores it on the context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, tokenStr, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}

		account, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(tokenStr))
		if err != nil {
			if errors.Is(err, service.ErrTokenNotValid) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"detail": "Token is invalid or expired",
					"code":   "token_not_valid",
				})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
			return
		}

		c.Set(currentAccountKey, account)
		c.Next()
	}
}

// CurrentAccount returns the account stored by Auth.
func CurrentAccount(c *gin.Context) (models.Account, bool) {
	value, exists := c.Get(currentAccountKey)
	if !exists {
		return models.Account{}, false
	}
	account, ok := value.(models.Account)
	return account, ok
}
