package service

import (
	"context"
	"fmt"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/repository"
)

type favoriteService struct {
	store repository.Store
}

func NewFavoriteService(store repository.Store) FavoriteService {
	return &favoriteService{store: store}
}

// RemoveAssetFromAllFavorites is idempotent: an asset nobody favorited
// yields zero and an empty list.
func (s *favoriteService) RemoveAssetFromAllFavorites(ctx context.Context, assetID int64) (int, []int64, error) {
	logger.EnterMethod("FavoriteService.RemoveAssetFromAllFavorites", "assetID", assetID)

	users, err := s.store.Repos().Favorites.RemoveAllForAsset(ctx, assetID)
	if err != nil {
		logger.ExitMethodWithError("FavoriteService.RemoveAssetFromAllFavorites", err, "assetID", assetID)
		return 0, nil, err
	}
	if users == nil {
		users = []int64{}
	}

	logger.ExitMethod("FavoriteService.RemoveAssetFromAllFavorites", "assetID", assetID, "removed", len(users))
	return len(users), users, nil
}

func (s *favoriteService) AddFavorite(ctx context.Context, userID, assetID int64) error {
	return s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		asset, err := repos.Assets.GetByID(ctx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != domain.AssetStatusAvailable {
			return domain.ErrAssetUnavailable.WithMessage(fmt.Sprintf("asset %d is %s", asset.ID, asset.Status))
		}
		return repos.Favorites.Add(ctx, userID, assetID)
	})
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, assetID int64) error {
	return s.store.Repos().Favorites.Remove(ctx, userID, assetID)
}

func (s *favoriteService) ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	return s.store.Repos().Favorites.ListByUser(ctx, userID)
}
