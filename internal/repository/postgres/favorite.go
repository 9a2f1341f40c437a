package postgres

import (
	"context"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

type favoriteRepository struct {
	db dbtx
}

// Add is idempotent; favoriting twice keeps the original timestamp.
func (r *favoriteRepository) Add(ctx context.Context, userID, assetID int64) error {
	query := `INSERT INTO favorites (user_id, asset_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, asset_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, assetID, time.Now().UTC()); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetNotFound
		}
		return mapError(err, domain.ErrFavoriteNotFound, "add favorite")
	}
	return nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, assetID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = $1 AND asset_id = $2`, userID, assetID)
	if err != nil {
		return mapError(err, domain.ErrFavoriteNotFound, "remove favorite")
	}
	return expectOne(res, domain.ErrFavoriteNotFound)
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, asset_id, created_at FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapError(err, domain.ErrFavoriteNotFound, "list favorites")
	}
	defer rows.Close()

	var favs []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.UserID, &f.AssetID, &f.CreatedAt); err != nil {
			return nil, err
		}
		favs = append(favs, f)
	}
	return favs, rows.Err()
}

func (r *favoriteRepository) RemoveAllForAsset(ctx context.Context, assetID int64) ([]int64, error) {
	logger.DatabaseCall("DELETE", "favorites", "assetID", assetID)
	rows, err := r.db.QueryContext(ctx, `DELETE FROM favorites WHERE asset_id = $1 RETURNING user_id`, assetID)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return nil, mapError(err, domain.ErrFavoriteNotFound, "remove favorites for asset")
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	logger.DatabaseResult("DELETE", int64(len(users)), rows.Err())
	return users, rows.Err()
}
