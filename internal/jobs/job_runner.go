package jobs

import (
	"context"
	"time"

	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/service"
)

const defaultJobTimeout = 10 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	rentals service.RentalService
	timeout time.Duration
}

// NewJobRunner creates a new job runner. A zero timeout uses the default.
func NewJobRunner(rentals service.RentalService, timeout time.Duration) *JobRunner {
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &JobRunner{rentals: rentals, timeout: timeout}
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()
	ctx = logger.NewContext(ctx, "job", jobName)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "Job panicked", "panic", r)
			err = errJobPanicked
		}
	}()

	logger.InfoContext(ctx, "Starting job")
	if err = jobFunc(ctx); err != nil {
		logger.ErrorContext(ctx, "Job failed", "error", err, "duration", time.Since(start))
		return err
	}
	logger.InfoContext(ctx, "Job completed", "duration", time.Since(start))
	return nil
}

// RunAllDailyJobs runs all daily jobs (for manual execution). Expiry runs
// first so reminders never go out for contracts that just ended.
func (jr *JobRunner) RunAllDailyJobs() error {
	if err := jr.ExpireOverdueRentals(); err != nil {
		return err
	}
	return jr.SendExtensionReminders()
}
