package queue

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper periodically evicts terminal jobs past TTL and expired cache
// entries, grounded on trader-go/internal/scheduler/scheduler.go's
// cron.New(cron.WithSeconds())-based Scheduler, specialized here to a single
// recurring task rather than a general job registry.
type Sweeper struct {
	cron *cron.Cron
	mgr  *Manager
	log  zerolog.Logger
}

// NewSweeper constructs a Sweeper bound to mgr. The sweep interval is given
// later, to Start.
func NewSweeper(mgr *Manager, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		cron: cron.New(cron.WithSeconds()),
		mgr:  mgr,
		log:  log.With().Str("component", "sweeper").Logger(),
	}
}

// Start registers the sweep task on the given interval and starts the cron
// scheduler. interval is a cron schedule expression such as "@every 1m".
func (s *Sweeper) Start(interval string) error {
	_, err := s.cron.AddFunc(interval, s.sweepOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("interval", interval).Msg("sweeper started")
	return nil
}

// Stop stops the scheduler and waits for any in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("sweeper stopped")
}

func (s *Sweeper) sweepOnce() {
	jobsEvicted, cacheEvicted := s.mgr.Sweep(time.Now())
	if jobsEvicted > 0 || cacheEvicted > 0 {
		s.log.Debug().
			Int("jobs_evicted", jobsEvicted).
			Int("cache_evicted", cacheEvicted).
			Msg("sweep completed")
	}
}
