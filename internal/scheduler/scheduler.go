package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"asset-rental-backend/internal/config"
	"asset-rental-backend/internal/jobs"
	"asset-rental-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler running in UTC with seconds precision and
// registers the daily lifecycle jobs on the configured specs.
func NewScheduler(jobRunner *jobs.JobRunner, cfg config.SchedulerConfig) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg config.SchedulerConfig) error {
	byName := s.jobs.Jobs()
	specs := []struct {
		name string
		spec string
	}{
		{"expire-overdue-rentals", cfg.ExpireOverdue},
		{"send-extension-reminders", cfg.ExtensionReminder},
	}

	for _, j := range specs {
		if _, err := s.cron.AddFunc(j.spec, byName[j.name]); err != nil {
			return fmt.Errorf("register %s job with spec %q: %w", j.name, j.spec, err)
		}
		logger.Info("Registered cron job", "job", j.name, "spec", j.spec)
	}
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries reports how many jobs are registered
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
