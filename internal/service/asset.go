package service

import (
	"context"
	"fmt"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/repository"
)

type assetService struct {
	store     repository.Store
	favorites FavoriteInvalidator
	predictor PricePredictor
}

// NewAssetService wires asset administration. favorites and predictor may be
// nil; without a predictor SuggestPrice fails with a dependency error.
func NewAssetService(store repository.Store, favorites FavoriteInvalidator, predictor PricePredictor) AssetService {
	return &assetService{store: store, favorites: favorites, predictor: predictor}
}

func (s *assetService) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	logger.EnterMethod("AssetService.CreateAsset", "title", asset.Title)

	if err := asset.Validate(); err != nil {
		return err
	}
	switch asset.Status {
	case "":
		asset.Status = domain.AssetStatusAvailable
	case domain.AssetStatusAvailable, domain.AssetStatusMaintenance, domain.AssetStatusReserved:
	default:
		return domain.ErrInvalidAssetStatus
	}
	if err := s.store.Repos().Assets.Create(ctx, asset); err != nil {
		logger.ExitMethodWithError("AssetService.CreateAsset", err)
		return err
	}

	logger.ExitMethod("AssetService.CreateAsset", "assetID", asset.ID)
	return nil
}

func (s *assetService) GetAsset(ctx context.Context, id int64) (*domain.Asset, error) {
	return s.store.Repos().Assets.GetByID(ctx, id)
}

func (s *assetService) ListAssets(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, int32, error) {
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	return s.store.Repos().Assets.List(ctx, filter)
}

// UpdateAsset changes descriptive fields and price. Status is never touched
// and requests keep the price they were submitted with.
func (s *assetService) UpdateAsset(ctx context.Context, asset *domain.Asset) error {
	logger.EnterMethod("AssetService.UpdateAsset", "assetID", asset.ID)

	if err := asset.Validate(); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cur, err := repos.Assets.GetByIDForUpdate(ctx, asset.ID)
		if err != nil {
			return err
		}
		asset.Status = cur.Status
		return repos.Assets.Update(ctx, asset)
	})
	if err != nil {
		logger.ExitMethodWithError("AssetService.UpdateAsset", err)
		return err
	}

	logger.ExitMethod("AssetService.UpdateAsset", "assetID", asset.ID)
	return nil
}

// SetAssetStatus moves an asset between available, maintenance and reserved.
// Rented is owned by the rental lifecycle and cannot be set or left here.
func (s *assetService) SetAssetStatus(ctx context.Context, id int64, status domain.AssetStatus) (*domain.Asset, error) {
	logger.EnterMethod("AssetService.SetAssetStatus", "assetID", id, "status", status)

	if !status.Valid() || status == domain.AssetStatusRented {
		return nil, domain.ErrInvalidAssetStatus
	}

	var asset *domain.Asset
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		asset, err = repos.Assets.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if asset.Status == domain.AssetStatusRented {
			return domain.ErrAssetUnavailable.WithMessage(fmt.Sprintf("asset %d is rented", id))
		}
		open, err := repos.Transactions.CountOpenByAsset(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrAssetUnavailable.WithMessage(fmt.Sprintf("asset %d has an open rental transaction", id))
		}
		if asset.Status == status {
			return nil
		}
		if err := repos.Assets.UpdateStatus(ctx, id, asset.Status, status); err != nil {
			return err
		}
		asset.Status = status
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("AssetService.SetAssetStatus", err, "assetID", id)
		return nil, err
	}

	if status != domain.AssetStatusAvailable && s.favorites != nil {
		if _, _, err := s.favorites.RemoveAssetFromAllFavorites(ctx, id); err != nil {
			logger.Warn("Failed to clear favorites of unavailable asset", "assetID", id, "error", err)
		}
	}

	logger.ExitMethod("AssetService.SetAssetStatus", "assetID", id, "status", asset.Status)
	return asset, nil
}

func (s *assetService) DeleteAsset(ctx context.Context, id int64) error {
	logger.EnterMethod("AssetService.DeleteAsset", "assetID", id)

	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Assets.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		used, err := repos.Assets.HasRentalHistory(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return domain.ErrAssetInUse
		}
		return repos.Assets.Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("AssetService.DeleteAsset", err, "assetID", id)
		return err
	}

	logger.ExitMethod("AssetService.DeleteAsset", "assetID", id)
	return nil
}

// SuggestPrice is advisory and never consulted by the rental lifecycle.
func (s *assetService) SuggestPrice(ctx context.Context, features domain.AssetFeatures) (int64, error) {
	if !features.Type.Valid() || features.LandArea <= 0 {
		return 0, domain.ErrInvalidAsset.WithMessage("asset type and land area are required for a price estimate")
	}
	if s.predictor == nil {
		return 0, domain.ErrDependencyFailure.WithMessage("price predictor is not configured")
	}

	logger.ExternalServiceCall("price_predictor", "Estimate", "type", features.Type, "city", features.City)
	price, err := s.predictor.Estimate(ctx, features)
	logger.ExternalServiceResult("price_predictor", "Estimate", err, "price", price)
	if err != nil {
		return 0, domain.ErrDependencyFailure.WithMessage(fmt.Sprintf("price predictor: %v", err))
	}
	return price, nil
}
