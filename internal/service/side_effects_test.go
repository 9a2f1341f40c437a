package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/service"
)

func TestSideEffects_RequestApproved(t *testing.T) {
	ctx := context.Background()
	dispatcher := new(MockDispatcher)
	invalidator := new(MockInvalidator)
	h := service.NewSideEffects(invalidator, dispatcher)

	invalidator.On("RemoveAssetFromAllFavorites", ctx, int64(3)).Return(3, []int64{2, 5, 9}, nil)
	dispatcher.On("NotifyUser", ctx, int64(2), domain.NotificationFavoriteRemoved, mock.Anything, mock.Anything, domain.RelatedAsset, int64(3)).Return(nil)
	dispatcher.On("NotifyUser", ctx, int64(9), domain.NotificationFavoriteRemoved, mock.Anything, mock.Anything, domain.RelatedAsset, int64(3)).
		Return(domain.ErrDependencyFailure)
	dispatcher.On("NotifyUser", ctx, int64(5), domain.NotificationRequestApproved, "Rental request approved", mock.Anything, domain.RelatedTransaction, int64(11)).Return(nil)

	err := events.NewInline(h).Publish(ctx, events.RequestApproved{RequestID: 4, TransactionID: 11, AssetID: 3, AssetTitle: "Lot 3", RequesterID: 5})

	warnings := events.Warnings(err)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, "notify_user", warnings[0].Effect)
	}
	dispatcher.AssertNotCalled(t, "NotifyUser", ctx, int64(5), domain.NotificationFavoriteRemoved, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	dispatcher.AssertExpectations(t)
	invalidator.AssertExpectations(t)
}

func TestSideEffects_AdminAndTenantNotices(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		h := service.NewSideEffects(new(MockInvalidator), dispatcher)
		dispatcher.On("NotifyAdmin", ctx, domain.NotificationTransactionExpired, "Rental expired",
			"Transaction #8 expired on 2025-04-30 and the asset is available again", domain.RelatedTransaction, int64(8)).Return(nil)
		dispatcher.On("NotifyUser", ctx, int64(2), domain.NotificationTransactionExpired, "Rental expired", mock.Anything, domain.RelatedTransaction, int64(8)).Return(nil)

		assert.NoError(t, events.NewInline(h).Publish(ctx, events.TransactionExpired{TransactionID: 8, AssetID: 1, TenantID: 2, EndDate: end}))
		dispatcher.AssertExpectations(t)
	})

	t.Run("Both channels fail", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		h := service.NewSideEffects(new(MockInvalidator), dispatcher)
		dispatcher.On("NotifyAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
		dispatcher.On("NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))

		err := events.NewInline(h).Publish(ctx, events.PaymentReceived{TransactionID: 8, TenantID: 2, Amount: 51_000_000, PaymentStatus: domain.PaymentStatusPaid})
		assert.Len(t, events.Warnings(err), 2)
	})

	t.Run("Ended carries the reason", func(t *testing.T) {
		dispatcher := new(MockDispatcher)
		h := service.NewSideEffects(new(MockInvalidator), dispatcher)
		msg := "Transaction #8 ended on 2025-04-30. Reason: moved out"
		dispatcher.On("NotifyAdmin", ctx, domain.NotificationTransactionEnded, "Rental ended", msg, domain.RelatedTransaction, int64(8)).Return(nil)
		dispatcher.On("NotifyUser", ctx, int64(2), domain.NotificationTransactionEnded, "Rental ended", msg, domain.RelatedTransaction, int64(8)).Return(nil)

		assert.NoError(t, events.NewInline(h).Publish(ctx, events.TransactionEnded{TransactionID: 8, TenantID: 2, EndDate: end, Reason: "moved out"}))
		dispatcher.AssertExpectations(t)
	})
}

func TestSideEffects_PlansOneFollowUpPerEffect(t *testing.T) {
	ctx := context.Background()
	dispatcher := new(MockDispatcher)
	invalidator := new(MockInvalidator)
	h := service.NewSideEffects(invalidator, dispatcher)

	followUps, err := h.Handle(ctx, events.RequestApproved{RequestID: 4, TransactionID: 11, AssetID: 3, AssetTitle: "Lot 3", RequesterID: 5})
	require.NoError(t, err)
	require.Len(t, followUps, 2)
	assert.Equal(t, events.FavoritesRevocation{AssetID: 3, AssetTitle: "Lot 3", RenterID: 5}, followUps[0])
	notice, ok := followUps[1].(events.NotificationDue)
	require.True(t, ok)
	assert.Equal(t, int64(5), notice.UserID)
	assert.Equal(t, domain.NotificationRequestApproved, notice.NotificationKind)
	dispatcher.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	invalidator.AssertNotCalled(t, "RemoveAssetFromAllFavorites", mock.Anything, mock.Anything)

	invalidator.On("RemoveAssetFromAllFavorites", ctx, int64(3)).Return(2, []int64{5, 9}, nil).Once()
	notices, err := h.Handle(ctx, followUps[0])
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, int64(9), notices[0].(events.NotificationDue).UserID)

	invalidator.On("RemoveAssetFromAllFavorites", ctx, int64(3)).Return(0, nil, errors.New("db down")).Once()
	notices, err = h.Handle(ctx, followUps[0])
	assert.Nil(t, notices)
	warnings := events.Warnings(err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "favorite_invalidation", warnings[0].Effect)
}
