package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authhub/api/internal/security"
	"authhub/api/internal/service"
)

const expiryLayout = "2006-01-02T15:04:05Z"

type tokenResponse struct {
	Access          string `json:"access"`
	Refresh         string `json:"refresh"`
	Exp             string `json:"exp"`
	RefreshExp      string `json:"refresh_exp"`
	Lifetime        int64  `json:"lifetime"`
	RefreshLifetime int64  `json:"refresh_lifetime"`
}

func newTokenResponse(pair security.TokenPair) tokenResponse {
	return tokenResponse{
		Access:          pair.Access,
		Refresh:         pair.Refresh,
		Exp:             pair.AccessExpiresAt.UTC().Format(expiryLayout),
		RefreshExp:      pair.RefreshExpiresAt.UTC().Format(expiryLayout),
		Lifetime:        int64(pair.AccessLifetime / time.Second),
		RefreshLifetime: int64(pair.RefreshLifetime / time.Second),
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var input service.LoginInput
	if !bind(c, &input) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(result.Tokens))
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTokenResponse(result.Tokens))
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h HandlerSet) Verify(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}
	if err := h.auth.Verify(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// Logout only acknowledges; issued tokens stay valid until they expire.
func (h HandlerSet) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Log out successfully"})
}

type activationRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

func (h HandlerSet) Activate(c *gin.Context) {
	var req activationRequest
	if !bind(c, &req) {
		return
	}
	if _, err := h.activation.Activate(c.Request.Context(), req.UID, req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account activated successfully"})
}
