// Package reporting forwards unexpected errors to Sentry.
package reporting

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"authhub/api/internal/config"
)

type Reporter interface {
	CaptureException(err error, tags map[string]string)
	RecoverPanic(recovered any, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// NewSentry initialises the global Sentry client. An empty DSN yields a no-op reporter.
func NewSentry(cfg config.SentryConfig, environment string) (Reporter, error) {
	if cfg.DSN == "" {
		return Nop(), nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: environment,
		Debug:       environment == "development",
		SampleRate:  cfg.SampleRate,
	}); err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	return &sentryReporter{hub: sentry.CurrentHub()}, nil
}

type sentryReporter struct {
	hub *sentry.Hub
}

func (s *sentryReporter) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

func (s *sentryReporter) RecoverPanic(recovered any, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.Recover(recovered)
	})
	s.hub.Flush(2 * time.Second)
}

func (s *sentryReporter) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

type nop struct{}

func Nop() Reporter { return nop{} }

func (nop) CaptureException(error, map[string]string) {}

func (nop) RecoverPanic(any, map[string]string) {}

func (nop) Flush(time.Duration) bool { return true }
