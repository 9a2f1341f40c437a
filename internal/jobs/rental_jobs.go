package jobs

import (
	"context"
	"errors"

	"asset-rental-backend/internal/logger"
)

var errJobPanicked = errors.New("job panicked")

// ExpireOverdueRentals completes every open contract whose end date passed
func (jr *JobRunner) ExpireOverdueRentals() error {
	return jr.runWithRecovery("ExpireOverdueRentals", func(ctx context.Context) error {
		ids, err := jr.rentals.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Expired overdue rentals", "count", len(ids), "transactionIDs", ids)
		return nil
	})
}

// SendExtensionReminders tells tenants their extension window is open
func (jr *JobRunner) SendExtensionReminders() error {
	return jr.runWithRecovery("SendExtensionReminders", func(ctx context.Context) error {
		sent, err := jr.rentals.RemindExtensionWindow(ctx)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Sent extension reminders", "count", sent)
		return nil
	})
}

// Cron adapters discard the error, which runWithRecovery already logged.

func (jr *JobRunner) expireOverdueRentalsJob()   { _ = jr.ExpireOverdueRentals() }
func (jr *JobRunner) sendExtensionRemindersJob() { _ = jr.SendExtensionReminders() }

// Jobs lists the cron-facing entry points by name.
func (jr *JobRunner) Jobs() map[string]func() {
	return map[string]func(){
		"expire-overdue-rentals":   jr.expireOverdueRentalsJob,
		"send-extension-reminders": jr.sendExtensionRemindersJob,
	}
}
