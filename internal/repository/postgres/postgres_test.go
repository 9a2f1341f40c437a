package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository"
	"asset-rental-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionCols = []string{"id", "rental_request_id", "asset_id", "tenant_id", "start_date", "end_date", "current_end_date", "monthly_price", "total_months",
	"paid_amount", "remaining_amount", "status", "payment_status", "extension_count", "extension_history", "end_reason", "payment_refs", "version", "created_at", "updated_at"}

func date(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestStore_WithTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status=\\$1, updated_at=\\$2 WHERE id=\\$3 AND status=\\$4").
			WithArgs(domain.AssetStatusRented, sqlmock.AnyArg(), int64(3), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Assets.UpdateStatus(ctx, 3, domain.AssetStatusAvailable, domain.AssetStatusRented)
		})
		assert.NoError(t, err)
	})

	t.Run("Rollback on check-and-set miss", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusRented, sqlmock.AnyArg(), int64(3), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			return repos.Assets.UpdateStatus(ctx, 3, domain.AssetStatusAvailable, domain.AssetStatusRented)
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRequestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRequestRepository(db)
	req := &domain.RentalRequest{
		AssetID:        2,
		RequesterID:    9,
		StartDate:      date("2025-01-01"),
		DurationMonths: 6,
		EndDate:        date("2025-06-30"),
		MonthlyPrice:   8_500_000,
		TotalPrice:     51_000_000,
		Status:         domain.RequestStatusPending,
	}

	mock.ExpectQuery("INSERT INTO rental_requests").
		WithArgs(req.AssetID, req.RequesterID, req.StartDate, req.DurationMonths, req.EndDate, req.MonthlyPrice, req.TotalPrice, req.Status, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))

	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(41), req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRequestRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRequestRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM rental_requests WHERE id = \\$1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestRentalTransactionRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalTransactionRepository(db)
	history := `[{"id":1,"requested_at":"2025-06-10T00:00:00Z","additional_months":3,"previous_end_date":"2025-06-30T00:00:00Z","new_end_date":"2025-09-28T00:00:00Z","status":"pending"}]`

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM rental_transactions WHERE id = \\$1").
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
			8, 4, 2, 9, date("2025-01-01"), date("2025-06-30"), date("2025-06-30"), 8_500_000, 6,
			51_000_000, 0, "active", "paid", 0, []byte(history), "", "{mp-991}", 3, now, now))

	tx, err := repo.GetByID(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusActive, tx.Status)
	assert.Equal(t, int64(3), tx.Version)
	require.Len(t, tx.ExtensionHistory, 1)
	assert.Equal(t, 3, tx.ExtensionHistory[0].AdditionalMonths)
	assert.Equal(t, domain.ExtensionStatusPending, tx.PendingExtension().Status)
	assert.Equal(t, []string{"mp-991"}, tx.PaymentRefs)
}

func TestRentalTransactionRepository_Create_DuplicateRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalTransactionRepository(db)
	mock.ExpectQuery("INSERT INTO rental_transactions").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = repo.Create(context.Background(), &domain.RentalTransaction{RentalRequestID: 4})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, domain.IsConflict(err))
}

func TestRentalTransactionRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalTransactionRepository(db)
	ctx := context.Background()

	t.Run("Advances version", func(t *testing.T) {
		tx := &domain.RentalTransaction{ID: 8, Version: 3, Status: domain.TransactionStatusExtended}
		mock.ExpectExec("UPDATE rental_transactions SET (.+) WHERE id=\\$12 AND version=\\$13").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), domain.TransactionStatusExtended, sqlmock.AnyArg(),
				sqlmock.AnyArg(), []byte("[]"), "", sqlmock.AnyArg(), sqlmock.AnyArg(), int64(8), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, tx))
		assert.Equal(t, int64(4), tx.Version)
	})

	t.Run("Stale version", func(t *testing.T) {
		tx := &domain.RentalTransaction{ID: 8, Version: 3}
		mock.ExpectExec("UPDATE rental_transactions SET").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(ctx, tx)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, int64(3), tx.Version)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalTransactionRepository_ListOverdueIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalTransactionRepository(db)
	today := time.Date(2025, 7, 1, 13, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id FROM rental_transactions WHERE status = ANY\\(\\$1\\) AND current_end_date < \\$2").
		WithArgs(sqlmock.AnyArg(), date("2025-07-01")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(7))

	ids, err := repo.ListOverdueIDs(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, ids)
}

func TestAssetRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewAssetRepository(db)
	ctx := context.Background()

	t.Run("Referenced by rentals", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM assets WHERE id = \\$1").
			WithArgs(int64(2)).
			WillReturnError(&pq.Error{Code: "23503"})
		assert.ErrorIs(t, repo.Delete(ctx, 2), domain.ErrAssetInUse)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM assets WHERE id = \\$1").
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Delete(ctx, 99), domain.ErrAssetNotFound)
	})

	t.Run("Driver failure is wrapped", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM assets").WillReturnError(errors.New("connection reset"))
		err := repo.Delete(ctx, 2)
		assert.ErrorContains(t, err, "delete asset: connection reset")
		assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	})
}

func TestAssetRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewAssetRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM assets WHERE status = \\$1 AND LOWER\\(city\\) = LOWER\\(\\$2\\)").
		WithArgs(domain.AssetStatusAvailable, "Bandung").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM assets WHERE status = \\$1 AND LOWER\\(city\\) = LOWER\\(\\$2\\) ORDER BY id LIMIT \\$3 OFFSET \\$4").
		WithArgs(domain.AssetStatusAvailable, "Bandung", int32(10), int32(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "title", "address", "city", "province", "land_area", "building_area", "monthly_price", "status", "created_at", "updated_at"}).
			AddRow(2, "land_building", "Ruko Dago", "Jl. Dago 12", "Bandung", "Jawa Barat", 120.0, 90.0, 8_500_000, "available", now, now))

	assets, total, err := repo.List(context.Background(), domain.AssetFilter{Status: domain.AssetStatusAvailable, City: "Bandung", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, assets, 1)
	assert.Equal(t, domain.AssetTypeLandBuilding, assets[0].Type)
}

func TestFavoriteRepository_RemoveAllForAsset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewFavoriteRepository(db)
	mock.ExpectQuery("DELETE FROM favorites WHERE asset_id = \\$1 RETURNING user_id").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(11).AddRow(12))

	users, err := repo.RemoveAllForAsset(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 12}, users)
}

func TestNotificationRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewNotificationRepository(db)
	ctx := context.Background()

	t.Run("Create admin notification", func(t *testing.T) {
		n := &domain.Notification{Audience: domain.AudienceAdmin, Kind: domain.NotificationTransactionExpired, Title: "Expired", Message: "m", RelatedType: domain.RelatedTransaction, RelatedID: 8}
		mock.ExpectQuery("INSERT INTO notifications").
			WithArgs(domain.AudienceAdmin, nil, n.Kind, n.Title, n.Message, n.RelatedType, n.RelatedID, false, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		require.NoError(t, repo.Create(ctx, n))
		assert.Equal(t, int64(1), n.ID)
	})

	t.Run("Mark read scoped to owner", func(t *testing.T) {
		mock.ExpectExec("UPDATE notifications SET is_read = TRUE WHERE id = \\$1 AND audience = 'user' AND user_id = \\$2").
			WithArgs(int64(4), int64(12)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.MarkAsRead(ctx, 4, domain.AudienceUser, 12), domain.ErrNotificationNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
