package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"authhub/api/internal/config"
	"authhub/api/internal/middleware"
	"authhub/api/internal/reporting"
	"authhub/api/internal/service"
)

// Pinger reports database liveness; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Auth       *service.AuthService
	Accounts   *service.AccountService
	Activation *service.ActivationService
	Resets     *service.PasswordResetService
	Imports    *service.ImportService
}

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	reporter   reporting.Reporter
	db         Pinger
	auth       *service.AuthService
	accounts   *service.AccountService
	activation *service.ActivationService
	resets     *service.PasswordResetService
	imports    *service.ImportService
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, reporter reporting.Reporter, db Pinger, svc Services) HandlerSet {
	if reporter == nil {
		reporter = reporting.Nop()
	}
	return HandlerSet{
		log:        log,
		cfg:        cfg,
		reporter:   reporter,
		db:         db,
		auth:       svc.Auth,
		accounts:   svc.Accounts,
		activation: svc.Activation,
		resets:     svc.Resets,
		imports:    svc.Imports,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.POST("/register/", h.RegisterAccount)
	router.POST("/org/:orgId/register/", h.RegisterAccount)

	router.POST("/login/", h.Login)
	router.POST("/token/refresh/", h.Refresh)
	router.POST("/token/verify/", h.Verify)

	router.POST("/user/activation/", h.Activate)

	reset := router.Group("/user_reset_password")
	reset.POST("/", h.RequestPasswordReset)
	reset.POST("/validate_token/", h.ValidateResetToken)
	reset.POST("/confirm/", h.ConfirmPasswordReset)

	authed := router.Group("/")
	authed.Use(middleware.Auth(h.auth))
	{
		authed.POST("/logout/", h.Logout)
		authed.PUT("/user_change_password/", h.ChangePassword)

		authed.GET("/user/me/", h.Me)
		authed.GET("/user/:id/", h.GetAccount)
		authed.PATCH("/user/:id/", h.UpdateAccount)
		authed.PUT("/user/:id/", h.UpdateAccount)
		authed.PATCH("/user/:id/update_status/", h.UpdateStatus)
	}

	admin := authed.Group("/")
	admin.Use(middleware.RequireInternalAdmin())
	{
		admin.GET("/user/", h.ListAccounts)
		admin.POST("/user/", h.CreateAccount)
		admin.POST("/user/import/", h.ImportAccounts)
		admin.PUT("/user/:id/reset_password/", h.SetPassword)
	}
}
