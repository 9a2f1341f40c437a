package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository/memory"
	"asset-rental-backend/internal/service"
)

func TestAssetService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := f.assets.CreateAsset(ctx, &domain.Asset{Type: domain.AssetTypeLand, Title: "Lot", LandArea: 100, BuildingArea: 20, MonthlyPrice: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidAsset)

	err = f.assets.CreateAsset(ctx, &domain.Asset{Type: domain.AssetTypeLand, Title: "Lot", LandArea: 100, MonthlyPrice: 1, Status: domain.AssetStatusRented})
	assert.ErrorIs(t, err, domain.ErrInvalidAssetStatus)

	f.seedAsset(t)
	cheap := &domain.Asset{Type: domain.AssetTypeLand, Title: "Lot Bogor", City: "Bogor", LandArea: 400, MonthlyPrice: 2_000_000}
	require.NoError(t, f.assets.CreateAsset(ctx, cheap))
	assert.Equal(t, domain.AssetStatusAvailable, cheap.Status)

	list, total, err := f.assets.ListAssets(ctx, domain.AssetFilter{City: "bogor"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Equal(t, cheap.ID, list[0].ID)

	list, _, err = f.assets.ListAssets(ctx, domain.AssetFilter{MaxPrice: 5_000_000})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAssetService_SetAssetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Maintenance clears favorites", func(t *testing.T) {
		f := newFixture(t)
		asset := f.seedAsset(t)
		require.NoError(t, f.favorites.AddFavorite(ctx, 2, asset.ID))

		updated, err := f.assets.SetAssetStatus(ctx, asset.ID, domain.AssetStatusMaintenance)
		require.NoError(t, err)
		assert.Equal(t, domain.AssetStatusMaintenance, updated.Status)

		favs, err := f.favorites.ListFavorites(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, favs)

		assert.ErrorIs(t, f.favorites.AddFavorite(ctx, 2, asset.ID), domain.ErrAssetUnavailable)

		back, err := f.assets.SetAssetStatus(ctx, asset.ID, domain.AssetStatusAvailable)
		require.NoError(t, err)
		assert.Equal(t, domain.AssetStatusAvailable, back.Status)
	})

	t.Run("Rented is owned by the lifecycle", func(t *testing.T) {
		f := newFixture(t)
		asset, _ := f.openTransaction(t, 60, false)

		_, err := f.assets.SetAssetStatus(ctx, asset.ID, domain.AssetStatusRented)
		assert.ErrorIs(t, err, domain.ErrInvalidAssetStatus)

		_, err = f.assets.SetAssetStatus(ctx, asset.ID, domain.AssetStatusAvailable)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
		f.requireRentedInvariant(t)
	})
}

func TestAssetService_DeleteAsset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	unused := f.seedAsset(t)
	used := f.seedAsset(t)
	f.submit(t, used.ID, 1, today, 1)

	assert.ErrorIs(t, f.assets.DeleteAsset(ctx, used.ID), domain.ErrAssetInUse)
	require.NoError(t, f.assets.DeleteAsset(ctx, unused.ID))
	assert.ErrorIs(t, f.assets.DeleteAsset(ctx, unused.ID), domain.ErrAssetNotFound)
}

func TestAssetService_SuggestPrice(t *testing.T) {
	ctx := context.Background()
	features := domain.AssetFeatures{Type: domain.AssetTypeLand, LandArea: 500, City: "Depok"}

	t.Run("Uses the predictor", func(t *testing.T) {
		predictor := new(MockPredictor)
		svc := service.NewAssetService(memory.NewStore(), nil, predictor)
		predictor.On("Estimate", ctx, features).Return(int64(3_250_000), nil)

		price, err := svc.SuggestPrice(ctx, features)
		require.NoError(t, err)
		assert.Equal(t, int64(3_250_000), price)
	})

	t.Run("Predictor failure", func(t *testing.T) {
		predictor := new(MockPredictor)
		svc := service.NewAssetService(memory.NewStore(), nil, predictor)
		predictor.On("Estimate", ctx, features).Return(int64(0), assert.AnError)

		_, err := svc.SuggestPrice(ctx, features)
		assert.ErrorIs(t, err, domain.ErrDependencyFailure)
	})

	t.Run("Not configured", func(t *testing.T) {
		svc := service.NewAssetService(memory.NewStore(), nil, nil)
		_, err := svc.SuggestPrice(ctx, features)
		assert.ErrorIs(t, err, domain.ErrDependencyFailure)

		_, err = svc.SuggestPrice(ctx, domain.AssetFeatures{Type: domain.AssetTypeLand})
		assert.ErrorIs(t, err, domain.ErrInvalidAsset)
	})
}
