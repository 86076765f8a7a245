package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) Purge(context.Context) (int64, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestSchedulerRunsPurge(t *testing.T) {
	purger := &countingPurger{}
	s := NewScheduler(purger, "@every 1s", zerolog.Nop(), nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return purger.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingPurger{}, "not a spec", zerolog.Nop(), nil)
	assert.Error(t, s.Start())
}

func TestSchedulerDisabledWithoutSpec(t *testing.T) {
	purger := &countingPurger{}
	s := NewScheduler(purger, "", zerolog.Nop(), nil)
	require.NoError(t, s.Start())
	<-s.Stop().Done()
	assert.Zero(t, purger.calls.Load())
}

func TestPurgeErrorIsReported(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	s := NewScheduler(purger, "@every 1h", zerolog.Nop(), nil)
	s.purgeResetTokens()
	assert.EqualValues(t, 1, purger.calls.Load())
}
