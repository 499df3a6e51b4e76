package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calsite/internal/log"
)

// Job is run on every scheduler tick.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule until its context is canceled.
type Scheduler struct {
	cron *cron.Cron
	spec string
}

// NewScheduler registers job under spec (standard 5-field cron syntax or
// descriptors such as "@every 15m"). Ticks that fire while a previous run
// is still going are skipped.
func NewScheduler(ctx context.Context, spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		appLog.Info("scheduled rebuild start", "schedule", spec)
		if err := job(ctx); err != nil {
			appLog.Error("scheduled rebuild failed", err, "schedule", spec)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("app: refresh schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, spec: spec}, nil
}

// Next reports when the job fires next after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t)
}

// Run starts the scheduler and blocks until ctx is canceled, then waits for
// a running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	appLog.Info("scheduler started", "schedule", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}
