package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authhub/api/internal/middleware"
	"authhub/api/internal/models"
	"authhub/api/internal/service"
)

var (
	permissionDenied   = gin.H{"detail": "You do not have permission to perform this action."}
	tokenNotValid      = gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"}
	invalidCredentials = gin.H{"detail": "Unable to log in with provided credentials."}
	resetNotFound      = gin.H{"status": "notfound"}
)

// fail maps service errors onto response bodies. Anything unrecognised is logged,
// reported and hidden behind a generic 500.
func (h HandlerSet) fail(c *gin.Context, err error) {
	var fields service.FieldErrors
	switch {
	case errors.As(err, &fields):
		c.JSON(http.StatusBadRequest, fields)
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, permissionDenied)
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, invalidCredentials)
	case errors.Is(err, service.ErrTokenNotValid):
		c.JSON(http.StatusUnauthorized, tokenNotValid)
	case errors.Is(err, service.ErrInvalidUID):
		c.JSON(http.StatusBadRequest, gin.H{"uid": []string{"Invalid user id or user doesn't exist."}})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"token": []string{"Invalid token for given user."}})
	case errors.Is(err, service.ErrStaleToken):
		c.JSON(http.StatusForbidden, gin.H{"token": "Stale token for given user."})
	case errors.Is(err, service.ErrOldPasswordIncorrect):
		c.JSON(http.StatusBadRequest, gin.H{"old_password": "Old password is not correct"})
	case errors.Is(err, service.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"password": "Password fields didn't match."})
	case errors.Is(err, service.ErrResetTokenNotFound):
		c.JSON(http.StatusNotFound, resetNotFound)
	case errors.Is(err, service.ErrUnsupportedFile):
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{err.Error()}})
	default:
		requestID := middleware.RequestIDFrom(c)
		_ = c.Error(err)
		h.log.Error().Err(err).
			Str("request_id", requestID).
			Str("path", c.FullPath()).
			Msg("request failed")
		h.reporter.CaptureException(err, map[string]string{"request_id": requestID, "path": c.FullPath()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}

// bind decodes JSON or form payloads and writes a 400 on malformed input.
func bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request body: " + err.Error()})
		return false
	}
	return true
}

func currentAccount(c *gin.Context) (models.Account, bool) {
	account, ok := middleware.CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
	}
	return account, ok
}
