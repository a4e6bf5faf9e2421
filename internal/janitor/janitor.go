// Package janitor runs periodic cleanup of expired sessions and stale
// planner usage records.
package janitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/planwise/planwise/internal/store"
)

// Janitor owns the cron scheduler for background cleanup.
type Janitor struct {
	cron        *cron.Cron
	store       *store.Store
	quotaWindow time.Duration
	log         zerolog.Logger
}

func New(st *store.Store, quotaWindow time.Duration, log zerolog.Logger) *Janitor {
	return &Janitor{
		cron:        cron.New(),
		store:       st,
		quotaWindow: quotaWindow,
		log:         log,
	}
}

// Start registers the cleanup jobs and starts the scheduler.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info().Msg("janitor started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sessions, err := j.store.Sessions.DeleteExpired(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("expired session cleanup failed")
	}

	// Usage rows older than the quota window can never count toward a quota
	// again.
	usage, err := j.store.Usage.DeleteOlderThan(ctx, time.Now().Add(-j.quotaWindow))
	if err != nil {
		j.log.Error().Err(err).Msg("usage cleanup failed")
	}

	if sessions > 0 || usage > 0 {
		j.log.Info().
			Int64("sessions", sessions).
			Int64("usage_rows", usage).
			Msg("janitor sweep completed")
	}
}
