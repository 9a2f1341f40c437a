package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/config"
	"asset-rental-backend/internal/jobs"
)

func TestNewScheduler(t *testing.T) {
	runner := jobs.NewJobRunner(nil, 0)

	s, err := NewScheduler(runner, config.SchedulerConfig{
		ExpireOverdue:     "0 15 0 * * *",
		ExtensionReminder: "0 0 8 * * *",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	_, err = NewScheduler(runner, config.SchedulerConfig{
		ExpireOverdue:     "every day",
		ExtensionReminder: "0 0 8 * * *",
	})
	assert.ErrorContains(t, err, "expire-overdue-rentals")
}
