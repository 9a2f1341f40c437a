package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/service"
)

func TestReportService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reports := service.NewReportService(f.store.Reports(), f.store.Repos().Transactions, clock)

	_, soon := f.openTransaction(t, 10, true)
	f.openTransaction(t, 90, false)
	f.seedAsset(t)
	maintenance := f.seedAsset(t)
	_, err := f.assets.SetAssetStatus(ctx, maintenance.ID, domain.AssetStatusMaintenance)
	require.NoError(t, err)

	t.Run("Occupancy skips maintenance", func(t *testing.T) {
		occ, err := reports.Occupancy(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), occ.RentableAssets)
		assert.Equal(t, int64(2), occ.RentedAssets)
		assert.InDelta(t, 2.0/3.0, occ.Rate, 1e-9)
	})

	t.Run("Asset counts", func(t *testing.T) {
		counts, err := reports.AssetCounts(ctx)
		require.NoError(t, err)
		assert.Contains(t, counts, domain.StatusCount{Status: "rented", Count: 2})
		assert.Contains(t, counts, domain.StatusCount{Status: "maintenance", Count: 1})
	})

	t.Run("Expiring soon", func(t *testing.T) {
		txs, err := reports.ExpiringSoon(ctx, 30)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, soon.ID, txs[0].ID)

		_, err = reports.ExpiringSoon(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("Revenue", func(t *testing.T) {
		from := today.AddDate(-1, 0, 0)
		summary, err := reports.Revenue(ctx, from, today)
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.Transactions)
		assert.Equal(t, int64(102_000_000), summary.ContractedAmount)
		assert.Equal(t, int64(51_000_000), summary.PaidAmount)

		_, err = reports.Revenue(ctx, today, from)
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("Monthly revenue is zero filled", func(t *testing.T) {
		months, err := reports.MonthlyRevenue(ctx, soon.StartDate.Year())
		require.NoError(t, err)
		require.Len(t, months, 12)
		assert.Equal(t, int64(51_000_000), months[int(soon.StartDate.Month())-1].PaidAmount)
		assert.Equal(t, 1, months[0].Month)

		_, err = reports.MonthlyRevenue(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidRange)
	})

}
