package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/repository/memory"
	"asset-rental-backend/internal/service"
)

const monthlyPrice = int64(8_500_000)

var today = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time {
	return today.Add(9 * time.Hour)
}

type fixture struct {
	store         *memory.Store
	rentals       service.RentalService
	payments      service.PaymentService
	favorites     service.FavoriteService
	notifications service.NotificationService
	assets        service.AssetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithGateway(t, nil)
}

func newFixtureWithGateway(t *testing.T, gateway service.PaymentGateway) *fixture {
	t.Helper()
	store := memory.NewStore()
	favorites := service.NewFavoriteService(store)
	dispatcher := service.NewNotificationDispatcher(store.Repos().Notifications, service.NotificationChannels{})
	bus := events.NewInline(service.NewSideEffects(favorites, dispatcher))

	return &fixture{
		store:         store,
		rentals:       service.NewRentalService(store, bus, service.RentalOptions{Now: clock, AllowPastStart: true}),
		payments:      service.NewPaymentService(store, bus, gateway, service.PaymentOptions{Now: clock}),
		favorites:     favorites,
		notifications: service.NewNotificationService(store.Repos().Notifications),
		assets:        service.NewAssetService(store, favorites, nil),
	}
}

func (f *fixture) seedAsset(t *testing.T) *domain.Asset {
	t.Helper()
	asset := &domain.Asset{
		Type:         domain.AssetTypeLandBuilding,
		Title:        "Warehouse Cikarang",
		City:         "Bekasi",
		Province:     "Jawa Barat",
		LandArea:     1200,
		BuildingArea: 800,
		MonthlyPrice: monthlyPrice,
	}
	require.NoError(t, f.assets.CreateAsset(context.Background(), asset))
	return asset
}

func (f *fixture) submit(t *testing.T, assetID, requesterID int64, start time.Time, months int) *domain.RentalRequest {
	t.Helper()
	req, _, err := f.rentals.SubmitRequest(context.Background(), assetID, requesterID, start, months)
	require.NoError(t, err)
	return req
}

// openTransaction creates an approved six month contract that ends daysLeft
// days from today, fully paid when paid is set.
func (f *fixture) openTransaction(t *testing.T, daysLeft int, paid bool) (*domain.Asset, *domain.RentalTransaction) {
	t.Helper()
	ctx := context.Background()
	asset := f.seedAsset(t)
	req := f.submit(t, asset.ID, 1, today.AddDate(0, 0, daysLeft-180), 6)

	tx, _, err := f.rentals.ApproveRequest(ctx, req.ID, "ok")
	require.NoError(t, err)
	if paid {
		tx, _, err = f.payments.RecordPayment(ctx, tx.ID, tx.RemainingAmount)
		require.NoError(t, err)
	}
	return asset, tx
}

func (f *fixture) adminNotifications(t *testing.T, kind domain.NotificationKind) []domain.Notification {
	t.Helper()
	all, _, err := f.notifications.ListAdminNotifications(context.Background(), 1, 100)
	require.NoError(t, err)
	return filterKind(all, kind)
}

func (f *fixture) userNotifications(t *testing.T, userID int64, kind domain.NotificationKind) []domain.Notification {
	t.Helper()
	all, _, err := f.notifications.ListUserNotifications(context.Background(), userID, 1, 100)
	require.NoError(t, err)
	return filterKind(all, kind)
}

func filterKind(all []domain.Notification, kind domain.NotificationKind) []domain.Notification {
	var out []domain.Notification
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// requireRentedInvariant checks that an asset is rented exactly when one
// open transaction references it.
func (f *fixture) requireRentedInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	repos := f.store.Repos()
	assets, _, err := repos.Assets.List(ctx, domain.AssetFilter{Page: 1, PageSize: 1000})
	require.NoError(t, err)
	for _, a := range assets {
		open, err := repos.Transactions.CountOpenByAsset(ctx, a.ID)
		require.NoError(t, err)
		if a.Status == domain.AssetStatusRented {
			require.Equal(t, 1, open, "rented asset %d", a.ID)
		} else {
			require.Equal(t, 0, open, "%s asset %d", a.Status, a.ID)
		}
	}
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) NotifyAdmin(ctx context.Context, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error {
	args := m.Called(ctx, kind, title, message, relatedType, relatedID)
	return args.Error(0)
}

func (m *MockDispatcher) NotifyUser(ctx context.Context, userID int64, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error {
	args := m.Called(ctx, userID, kind, title, message, relatedType, relatedID)
	return args.Error(0)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) RemoveAssetFromAllFavorites(ctx context.Context, assetID int64) (int, []int64, error) {
	args := m.Called(ctx, assetID)
	var users []int64
	if v := args.Get(1); v != nil {
		users = v.([]int64)
	}
	return args.Int(0), users, args.Error(2)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateChargeToken(ctx context.Context, draft domain.ChargeDraft) (*domain.ChargeToken, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChargeToken), args.Error(1)
}

func (m *MockGateway) VerifyPayment(ctx context.Context, paymentID string) (*domain.PaymentVerification, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentVerification), args.Error(1)
}

type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Estimate(ctx context.Context, features domain.AssetFeatures) (int64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(int64), args.Error(1)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error {
	args := m.Called(ctx, topic, title, body, data)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, plainText, html string) error {
	args := m.Called(ctx, to, subject, plainText, html)
	return args.Error(0)
}
