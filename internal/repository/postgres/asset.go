package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

type assetRepository struct {
	db dbtx
}

const assetColumns = `id, type, title, address, city, province, land_area, building_area, monthly_price, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	a := &domain.Asset{}
	err := row.Scan(&a.ID, &a.Type, &a.Title, &a.Address, &a.City, &a.Province, &a.LandArea, &a.BuildingArea, &a.MonthlyPrice, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assetRepository) Create(ctx context.Context, a *domain.Asset) error {
	logger.DatabaseCall("INSERT", "assets", "title", a.Title)
	now := time.Now().UTC()
	if a.Status == "" {
		a.Status = domain.AssetStatusAvailable
	}
	query := `INSERT INTO assets (type, title, address, city, province, land_area, building_area, monthly_price, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, a.Type, a.Title, a.Address, a.City, a.Province, a.LandArea, a.BuildingArea, a.MonthlyPrice, a.Status, now, now).Scan(&a.ID)
	logger.DatabaseResult("INSERT", 1, err, "assetID", a.ID)
	if err != nil {
		return mapError(err, domain.ErrAssetNotFound, "create asset")
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (r *assetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrAssetNotFound, "get asset")
	}
	return a, nil
}

func (r *assetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1 FOR UPDATE`
	a, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrAssetNotFound, "lock asset")
	}
	return a, nil
}

// Update writes the descriptive attributes and price. Status is owned by
// UpdateStatus.
func (r *assetRepository) Update(ctx context.Context, a *domain.Asset) error {
	now := time.Now().UTC()
	query := `UPDATE assets SET type=$1, title=$2, address=$3, city=$4, province=$5, land_area=$6, building_area=$7, monthly_price=$8, updated_at=$9 WHERE id=$10`
	res, err := r.db.ExecContext(ctx, query, a.Type, a.Title, a.Address, a.City, a.Province, a.LandArea, a.BuildingArea, a.MonthlyPrice, now, a.ID)
	if err != nil {
		return mapError(err, domain.ErrAssetNotFound, "update asset")
	}
	if err := expectOne(res, domain.ErrAssetNotFound); err != nil {
		return err
	}
	a.UpdatedAt = now
	return nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.AssetStatus) error {
	logger.DatabaseCall("UPDATE", "assets", "assetID", id, "expected", expected, "next", next)
	query := `UPDATE assets SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	res, err := r.db.ExecContext(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return mapError(err, domain.ErrAssetNotFound, "update asset status")
	}
	return expectOne(res, domain.ErrConflict.WithMessage(fmt.Sprintf("asset %d is no longer %s", id, expected)))
}

func (r *assetRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrAssetInUse
		}
		return mapError(err, domain.ErrAssetNotFound, "delete asset")
	}
	return expectOne(res, domain.ErrAssetNotFound)
}

func (r *assetRepository) List(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, int32, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.City != "" {
		add("LOWER(city) = LOWER($%d)", filter.City)
	}
	if filter.MaxPrice > 0 {
		add("monthly_price <= $%d", filter.MaxPrice)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM assets`+where, args...).Scan(&count); err != nil {
		return nil, 0, mapError(err, domain.ErrAssetNotFound, "count assets")
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := `SELECT ` + assetColumns + ` FROM assets` + where +
		fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, mapError(err, domain.ErrAssetNotFound, "list assets")
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, *a)
	}
	return assets, count, rows.Err()
}

func (r *assetRepository) HasRentalHistory(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM rental_requests WHERE asset_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, mapError(err, domain.ErrAssetNotFound, "check asset history")
	}
	return exists, nil
}
