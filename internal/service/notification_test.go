package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository"
	"asset-rental-backend/internal/repository/memory"
	"asset-rental-backend/internal/service"
)

type failingNotifications struct {
	repository.NotificationRepository
}

func (failingNotifications) Create(context.Context, *domain.Notification) error {
	return assert.AnError
}

func TestNotificationDispatcher_Channels(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	push := new(MockPushSender)
	email := new(MockEmailSender)
	dispatcher := service.NewNotificationDispatcher(store.Repos().Notifications, service.NotificationChannels{
		Push:       push,
		Email:      email,
		AdminEmail: "ops@example.com",
	})

	push.On("SendToTopic", ctx, "user-5", "Rental request approved", "Approved", mock.MatchedBy(func(data map[string]string) bool {
		return data["kind"] == string(domain.NotificationRequestApproved) && data["related_id"] == "12"
	})).Return(nil)
	push.On("SendToTopic", ctx, "admins", "Rental ended", "Ended", mock.Anything).Return(assert.AnError)
	email.On("SendEmail", ctx, "ops@example.com", "Rental ended", "Ended", "<p>Ended</p>").Return(nil)

	require.NoError(t, dispatcher.NotifyUser(ctx, 5, domain.NotificationRequestApproved, "Rental request approved", "Approved", domain.RelatedTransaction, 12))
	require.NoError(t, dispatcher.NotifyAdmin(ctx, domain.NotificationTransactionEnded, "Rental ended", "Ended", domain.RelatedTransaction, 12),
		"push failures are logged, not returned")

	push.AssertExpectations(t)
	email.AssertExpectations(t)

	notes := service.NewNotificationService(store.Repos().Notifications)
	unread, err := notes.CountUnread(ctx, domain.AudienceUser, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationDispatcher_RecordFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	push := new(MockPushSender)
	dispatcher := service.NewNotificationDispatcher(failingNotifications{store.Repos().Notifications}, service.NotificationChannels{Push: push})

	err := dispatcher.NotifyAdmin(ctx, domain.NotificationRequestSubmitted, "New", "msg", domain.RelatedRequest, 1)
	assert.ErrorIs(t, err, domain.ErrDependencyFailure)
	push.AssertNotCalled(t, "SendToTopic", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_ReadSide(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dispatcher := service.NewNotificationDispatcher(store.Repos().Notifications, service.NotificationChannels{})
	notes := service.NewNotificationService(store.Repos().Notifications)

	require.NoError(t, dispatcher.NotifyUser(ctx, 5, domain.NotificationPaymentReceived, "Paid", "one", domain.RelatedTransaction, 1))
	require.NoError(t, dispatcher.NotifyUser(ctx, 6, domain.NotificationPaymentReceived, "Paid", "two", domain.RelatedTransaction, 2))
	require.NoError(t, dispatcher.NotifyAdmin(ctx, domain.NotificationPaymentReceived, "Paid", "admin", domain.RelatedTransaction, 1))

	mine, total, err := notes.ListUserNotifications(ctx, 5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, mine, 1)

	assert.ErrorIs(t, notes.MarkUserNotificationRead(ctx, 6, mine[0].ID), domain.ErrNotificationNotFound)
	require.NoError(t, notes.MarkUserNotificationRead(ctx, 5, mine[0].ID))

	admin, _, err := notes.ListAdminNotifications(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Nil(t, admin[0].UserID)
	require.NoError(t, notes.MarkAdminNotificationRead(ctx, admin[0].ID))

	unread, err := notes.CountUnread(ctx, domain.AudienceUser, 5)
	require.NoError(t, err)
	assert.Zero(t, unread)
	unread, err = notes.CountUnread(ctx, domain.AudienceAdmin, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)
}
