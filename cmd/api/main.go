package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"authhub/api/internal/codec"
	"authhub/api/internal/config"
	"authhub/api/internal/database"
	"authhub/api/internal/events"
	"authhub/api/internal/handlers"
	"authhub/api/internal/jobs"
	"authhub/api/internal/log"
	"authhub/api/internal/mailer"
	"authhub/api/internal/reporting"
	"authhub/api/internal/repository"
	"authhub/api/internal/security"
	"authhub/api/internal/server"
	"authhub/api/internal/service"
	"authhub/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	reporter, err := reporting.NewSentry(cfg.Sentry, cfg.Environment)
	if err != nil {
		logger.Warn().Err(err).Msg("sentry disabled")
		reporter = reporting.Nop()
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	accounts := repository.NewAccountRepository(dbPool)
	resetTokens := repository.NewResetTokenRepository(dbPool)

	var uploader service.ObjectUploader
	if cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != "" {
		objectStore, err := storage.NewObjectStore(cfg.Storage, logger, reporter)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init object store")
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
		uploader = objectStore
	} else {
		logger.Warn().Msg("storage credentials missing, avatar uploads disabled")
	}

	var sender mailer.Sender
	if cfg.Mail.APIKey != "" && cfg.Mail.Domain != "" {
		sender = mailer.NewMailgun(cfg.Mail, logger, reporter)
	} else {
		sender = mailer.NewLogSender(logger)
	}

	var sealer service.Sealer
	if cfg.Security.EncryptionKey != "" {
		cipher, err := codec.NewCipher(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid encryption key")
		}
		sealer = cipher
	}

	hasher := security.NewHasher(cfg.Security)
	tokens := security.NewTokenIssuer(cfg.Security)
	activationTokens := security.NewActivationTokens(cfg.Security.ActivationSecret, cfg.Security.ActivationTTL)

	bus := events.NewBus()

	avatars := service.NewAvatarService(uploader, cfg.Storage.PresignExpiry, logger)
	accountService := service.NewAccountService(accounts, avatars, hasher, bus, logger)
	activationService := service.NewActivationService(accounts, activationTokens, cfg.Domain, logger)
	resetService := service.NewPasswordResetService(accounts, resetTokens, hasher, sealer, bus, cfg.Security.ResetTokenTTL, logger)

	notifier := service.NewNotifier(sender, activationService, cfg.Domain, logger)
	notifier.Subscribe(bus, cfg.Features.SendActivationEmail)

	handlerSet := handlers.NewHandlerSet(logger, cfg, reporter, dbPool, handlers.Services{
		Auth:       service.NewAuthService(accounts, tokens, hasher, logger),
		Accounts:   accountService,
		Activation: activationService,
		Resets:     resetService,
		Imports:    service.NewImportService(accountService, logger),
	})
	httpServer := server.NewHTTPServer(cfg, logger, reporter, handlerSet)

	scheduler := jobs.NewScheduler(resetService, cfg.Jobs.ResetTokenPurgeSpec, logger, reporter)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			reporter.CaptureException(err, map[string]string{"component": "http"})
			reporter.Flush(2 * time.Second)
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, notifier, dbPool, reporter)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	scheduler *jobs.Scheduler,
	notifier *service.Notifier,
	db *pgxpool.Pool,
	reporter reporting.Reporter,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler jobs still running at shutdown")
	}

	if err := notifier.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending notifications abandoned")
	}

	db.Close()
	reporter.Flush(2 * time.Second)

	logger.Info().Msg("server exited cleanly")
}
