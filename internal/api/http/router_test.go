package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/payment"
	"asset-rental-backend/internal/repository/memory"
	"asset-rental-backend/internal/security"
	"asset-rental-backend/internal/service"
)

const webhookSecret = "hook-secret"

type response[T any] struct {
	Data       T                `json:"data"`
	Warnings   []domain.Warning `json:"warnings"`
	Pagination *pagination      `json:"pagination"`
	Error      *errorDetail     `json:"error"`
}

type apiFixture struct {
	router http.Handler
	tokens security.TokenManager
	admin  string
	alice  string
	bob    string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }

	store := memory.NewStore()
	favorites := service.NewFavoriteService(store)
	dispatcher := service.NewNotificationDispatcher(store.Repos().Notifications, service.NotificationChannels{})
	bus := events.NewInline(service.NewSideEffects(favorites, dispatcher))
	gateway, err := payment.NewMercadoPagoGateway("", "", true)
	require.NoError(t, err)

	tokens := security.NewTokenManager("test-secret", "rental-auth")
	router := NewRouter(Services{
		Rentals:       service.NewRentalService(store, bus, service.RentalOptions{Now: now}),
		Payments:      service.NewPaymentService(store, bus, gateway, service.PaymentOptions{Now: now}),
		Favorites:     favorites,
		Notifications: service.NewNotificationService(store.Repos().Notifications),
		Assets:        service.NewAssetService(store, favorites, nil),
		Reports:       service.NewReportService(store.Reports(), store.Repos().Transactions, now),
	}, RouterOptions{Tokens: tokens, WebhookSecret: webhookSecret, RequestTimeout: 5 * time.Second})

	token := func(id int64, roles ...string) string {
		s, err := tokens.GenerateAccessToken(id, "", roles)
		require.NoError(t, err)
		return s
	}
	return &apiFixture{
		router: router,
		tokens: tokens,
		admin:  token(100, security.RoleAdmin),
		alice:  token(5, security.RoleTenant),
		bob:    token(6, security.RoleTenant),
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) response[T] {
	t.Helper()
	var out response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (f *apiFixture) createAsset(t *testing.T) domain.Asset {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/admin/assets", f.admin,
		`{"type":"land_building","title":"Ruko Serpong","city":"Tangerang","land_area_m2":90,"building_area_m2":180,"monthly_price":8500000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeResponse[domain.Asset](t, rec).Data
}

func TestRouter_Authentication(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/me/rentals", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/me/rentals", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/assets", f.alice, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/assets", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRouter_RentalLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	asset := f.createAsset(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals", f.alice,
		`{"asset_id":`+itoa(asset.ID)+`,"start_date":"2025-05-10","duration_months":6}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	req := decodeResponse[domain.RentalRequest](t, rec).Data
	assert.Equal(t, int64(51_000_000), req.TotalPrice)
	assert.Equal(t, domain.RequestStatusPending, req.Status)

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/"+itoa(req.ID), f.bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "other tenants cannot see the request")

	rec = f.do(t, http.MethodPost, "/api/v1/admin/rentals/"+itoa(req.ID)+"/approve", f.admin, `{"notes":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tx := decodeResponse[domain.RentalTransaction](t, rec).Data
	assert.Equal(t, domain.TransactionStatusActive, tx.Status)
	assert.Equal(t, int64(51_000_000), tx.RemainingAmount)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/rentals/"+itoa(req.ID)+"/approve", f.admin, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REQUEST_NOT_PENDING", decodeResponse[any](t, rec).Error.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/assets/"+itoa(asset.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AssetStatusRented, decodeResponse[domain.Asset](t, rec).Data.Status)

	rec = f.do(t, http.MethodGet, "/api/v1/me/transactions", f.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeResponse[[]domain.RentalTransaction](t, rec)
	require.Len(t, mine.Data, 1)
	assert.Equal(t, int32(1), mine.Pagination.Total)

	rec = f.do(t, http.MethodPost, "/api/v1/transactions/"+itoa(tx.ID)+"/extensions", f.alice, `{"additional_months":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "extension window is not open yet")

	rec = f.do(t, http.MethodPost, "/api/v1/admin/transactions/"+itoa(tx.ID)+"/end", f.admin, `{"reason":"tenant moved out"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.TransactionStatusCompleted, decodeResponse[domain.RentalTransaction](t, rec).Data.Status)

	rec = f.do(t, http.MethodGet, "/api/v1/me/notifications", f.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeResponse[[]domain.Notification](t, rec).Data)
}

func TestRouter_Validation(t *testing.T) {
	f := newAPIFixture(t)
	asset := f.createAsset(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{"asset_id":`+itoa(asset.ID)+`,"start_date":"10/05/2025","duration_months":6}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DATE", decodeResponse[any](t, rec).Error.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{"asset_id":999,"start_date":"2025-05-10","duration_months":6}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{"asset_id":`+itoa(asset.ID)+`,"start_date":"2025-05-10","duration_months":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{"asset_id":`+itoa(asset.ID)+`,"start_date":"2025-05-10","duration_months":1152921504606846976}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DURATION", decodeResponse[any](t, rec).Error.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/me/notifications?page_size=4294967297", f.alice, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rentals/abc", f.alice, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/assets/price-suggestion", f.admin, `{"type":"land","land_area_m2":100}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code, "no predictor configured")
}

func TestRouter_CheckoutAndWebhook(t *testing.T) {
	f := newAPIFixture(t)
	asset := f.createAsset(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rentals", f.alice, `{"asset_id":`+itoa(asset.ID)+`,"start_date":"2025-05-10","duration_months":6}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	req := decodeResponse[domain.RentalRequest](t, rec).Data

	rec = f.do(t, http.MethodPost, "/api/v1/admin/rentals/"+itoa(req.ID)+"/approve", f.admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	tx := decodeResponse[domain.RentalTransaction](t, rec).Data

	rec = f.do(t, http.MethodPost, "/api/v1/transactions/"+itoa(tx.ID)+"/checkout", f.bob, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/transactions/"+itoa(tx.ID)+"/checkout", f.alice, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeResponse[domain.ChargeToken](t, rec).Data
	require.NotEmpty(t, token.Token)

	body := `{"type":"payment","action":"payment.updated","data":{"id":"` + token.Token + `"}}`

	rec = f.do(t, http.MethodPost, "/api/v1/payments/webhook", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	hook := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewBufferString(body))
		r.Header.Set(webhookSecretHeader, webhookSecret)
		out := httptest.NewRecorder()
		f.router.ServeHTTP(out, r)
		return out
	}

	rec = hook()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeResponse[domain.RentalTransaction](t, rec).Data
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, int64(51_000_000), paid.PaidAmount)

	rec = hook()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(51_000_000), decodeResponse[domain.RentalTransaction](t, rec).Data.PaidAmount)

	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook?topic=merchant_order&id=1", nil)
	r.Header.Set(webhookSecretHeader, webhookSecret)
	out := httptest.NewRecorder()
	f.router.ServeHTTP(out, r)
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "ignored", decodeResponse[map[string]string](t, out).Data["status"])
}

func TestRouter_Reports(t *testing.T) {
	f := newAPIFixture(t)
	f.createAsset(t)
	f.createAsset(t)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/reports/occupancy", f.admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	occ := decodeResponse[domain.Occupancy](t, rec).Data
	assert.Equal(t, 2, int(occ.RentableAssets))

	rec = f.do(t, http.MethodGet, "/api/v1/admin/reports/revenue?from=2025-06-01&to=2025-01-01", f.admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/reports/monthly-revenue?year=2025", f.admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[[]domain.MonthlyRevenue](t, rec).Data, 12)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(domain.KindNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.KindValidation))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindInvalidState))
	assert.Equal(t, http.StatusConflict, statusFor(domain.KindConflict))
	assert.Equal(t, http.StatusForbidden, statusFor(domain.KindForbidden))
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.KindDependencyFailure))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.KindInternal))
}

func TestPageParams(t *testing.T) {
	page, size, err := pageParams(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), page)
	assert.Equal(t, int32(20), size)

	page, size, err = pageParams(httptest.NewRequest(http.MethodGet, "/x?page=3&page_size=50", nil))
	require.NoError(t, err)
	assert.Equal(t, int32(3), page)
	assert.Equal(t, int32(50), size)

	for _, q := range []string{"page_size=4294967297", "page=2147483648", "page=abc"} {
		_, _, err := pageParams(httptest.NewRequest(http.MethodGet, "/x?"+q, nil))
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), q)
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
