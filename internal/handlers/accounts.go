package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"authhub/api/internal/models"
	"authhub/api/internal/service"
)

type accountResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Avatar        *string    `json:"avatar"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	IsInternal    bool       `json:"is_internal"`
	IsStaff       bool       `json:"is_staff"`
	IsSuperuser   bool       `json:"is_superuser"`
	LastLogin     *time.Time `json:"last_login"`
	DateJoined    time.Time  `json:"date_joined"`
}

func (h HandlerSet) accountView(ctx context.Context, account models.Account) accountResponse {
	resp := accountResponse{
		ID:            account.ID,
		Email:         account.Email,
		Username:      account.Username,
		FirstName:     account.FirstName,
		LastName:      account.LastName,
		IsActive:      account.IsActive,
		EmailVerified: account.EmailVerified,
		IsInternal:    account.IsInternal,
		IsStaff:       account.IsStaff,
		IsSuperuser:   account.IsSuperuser,
		LastLogin:     account.LastLogin,
		DateJoined:    account.DateJoined,
	}
	if url := h.accounts.AvatarURL(ctx, account); url != "" {
		resp.Avatar = &url
	}
	return resp
}

// RegisterAccount accepts JSON or a multipart form with an optional avatar file.
func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var input service.RegisterInput
	if !bind(c, &input) {
		return
	}
	input.OrgID = c.Param("orgId")

	avatar, closeAvatar, err := formAvatar(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeAvatar()
	input.Avatar = avatar

	account, err := h.accounts.Register(c.Request.Context(), input)
	if errors.Is(err, service.ErrPasswordMismatch) {
		c.JSON(http.StatusOK, gin.H{"error": "Password does not match."})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	if input.OrgID != "" {
		h.log.Info().Str("org_id", input.OrgID).Str("account_id", account.ID).Msg("organisation sign-up")
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Registration successful",
		"username": account.Username,
		"email":    account.Email,
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), actor, actor.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.accountView(c.Request.Context(), account))
}

func (h HandlerSet) GetAccount(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.accountView(c.Request.Context(), account))
}

func (h HandlerSet) ListAccounts(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	accounts, err := h.accounts.List(c.Request.Context(), actor, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		resp = append(resp, h.accountView(c.Request.Context(), account))
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) CreateAccount(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	var input service.CreateAccountInput
	if !bind(c, &input) {
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.accountView(c.Request.Context(), account))
}

// UpdateAccount serves both PATCH and PUT as a partial update.
func (h HandlerSet) UpdateAccount(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	var input service.UpdateInput
	if !bind(c, &input) {
		return
	}

	avatar, closeAvatar, err := formAvatar(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeAvatar()
	input.Avatar = avatar

	account, err := h.accounts.Update(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.accountView(c.Request.Context(), account))
}

func (h HandlerSet) UpdateStatus(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	var input service.StatusInput
	if !bind(c, &input) {
		return
	}

	account, err := h.accounts.UpdateStatus(c.Request.Context(), actor, c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":    h.accountView(c.Request.Context(), account),
		"message": "user status updated successfully",
	})
}

func (h HandlerSet) ImportAccounts(c *gin.Context) {
	actor, ok := currentAccount(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"No file was submitted."}})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer file.Close()

	report, err := h.imports.Import(c.Request.Context(), actor, header.Filename, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// formAvatar returns the optional "avatar" part of a multipart request.
func formAvatar(c *gin.Context) (*service.AvatarInput, func(), error) {
	noop := func() {}
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, noop, nil
	}

	header, err := c.FormFile("avatar")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	var file multipart.File
	if file, err = header.Open(); err != nil {
		return nil, noop, err
	}
	return &service.AvatarInput{
		File:     file,
		Filename: header.Filename,
		Header:   header.Header,
	}, func() { _ = file.Close() }, nil
}
