package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authhub/api/internal/service"
)

func (h HandlerSet) ChangePassword(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	var input service.ChangePasswordInput
	if !bind(c, &input) {
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), actor, input); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{}, "message": "Password changed successfully"})
}

type setPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (h HandlerSet) SetPassword(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	var req setPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := h.accounts.SetPassword(c.Request.Context(), actor, c.Param("id"), req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successfully"})
}

func (h HandlerSet) RequestPasswordReset(c *gin.Context) {
	var input service.ResetRequestInput
	if !bind(c, &input) {
		return
	}
	input.IPAddress = c.ClientIP()
	input.UserAgent = c.GetHeader("User-Agent")

	if err := h.resets.Request(c.Request.Context(), input); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

type resetTokenRequest struct {
	Token string `json:"token"`
}

func (h HandlerSet) ValidateResetToken(c *gin.Context) {
	var req resetTokenRequest
	if !bind(c, &req) {
		return
	}
	if err := h.resets.Validate(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h HandlerSet) ConfirmPasswordReset(c *gin.Context) {
	var input service.ResetConfirmInput
	if !bind(c, &input) {
		return
	}
	if err := h.resets.Confirm(c.Request.Context(), input); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}
