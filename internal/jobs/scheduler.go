package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"authhub/api/internal/reporting"
)

const purgeTimeout = time.Minute

// Purger removes reset tokens that can no longer be redeemed.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	purger   Purger
	spec     string
	log      zerolog.Logger
	reporter reporting.Reporter
}

func NewScheduler(purger Purger, spec string, log zerolog.Logger, reporter reporting.Reporter) *Scheduler {
	if reporter == nil {
		reporter = reporting.Nop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		purger:   purger,
		spec:     spec,
		log:      log,
		reporter: reporter,
	}
}

func (s *Scheduler) Start() error {
	if s.purger == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.purgeResetTokens); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) purgeResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	removed, err := s.purger.Purge(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("purge reset tokens failed")
		s.reporter.CaptureException(err, map[string]string{"job": "purge_reset_tokens"})
		return
	}
	s.log.Info().Int64("removed", removed).Msg("reset tokens purged")
}
