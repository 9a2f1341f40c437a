package postgres

import (
	"context"
	"fmt"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

type rentalRequestRepository struct {
	db dbtx
}

const requestColumns = `id, asset_id, requester_id, start_date, duration_months, end_date, monthly_price, total_price, status, admin_notes, created_at, updated_at`

func scanRequest(row rowScanner) (*domain.RentalRequest, error) {
	rr := &domain.RentalRequest{}
	err := row.Scan(&rr.ID, &rr.AssetID, &rr.RequesterID, &rr.StartDate, &rr.DurationMonths, &rr.EndDate, &rr.MonthlyPrice, &rr.TotalPrice, &rr.Status, &rr.AdminNotes, &rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rr.StartDate = domain.DateOf(rr.StartDate)
	rr.EndDate = domain.DateOf(rr.EndDate)
	return rr, nil
}

func (r *rentalRequestRepository) Create(ctx context.Context, rr *domain.RentalRequest) error {
	logger.EnterMethod("rentalRequestRepository.Create", "assetID", rr.AssetID, "requesterID", rr.RequesterID)

	now := time.Now().UTC()
	query := `INSERT INTO rental_requests (asset_id, requester_id, start_date, duration_months, end_date, monthly_price, total_price, status, admin_notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	logger.DatabaseCall("INSERT", "rental_requests", "assetID", rr.AssetID)
	err := r.db.QueryRowContext(ctx, query, rr.AssetID, rr.RequesterID, rr.StartDate, rr.DurationMonths, rr.EndDate, rr.MonthlyPrice, rr.TotalPrice, rr.Status, rr.AdminNotes, now, now).Scan(&rr.ID)
	logger.DatabaseResult("INSERT", 1, err, "requestID", rr.ID)

	if err != nil {
		logger.ExitMethodWithError("rentalRequestRepository.Create", err)
		return mapError(err, domain.ErrRequestNotFound, "create rental request")
	}
	rr.CreatedAt, rr.UpdatedAt = now, now
	logger.ExitMethod("rentalRequestRepository.Create", "requestID", rr.ID)
	return nil
}

func (r *rentalRequestRepository) GetByID(ctx context.Context, id int64) (*domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE id = $1`
	rr, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrRequestNotFound, "get rental request")
	}
	return rr, nil
}

func (r *rentalRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM rental_requests WHERE id = $1 FOR UPDATE`
	rr, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrRequestNotFound, "lock rental request")
	}
	return rr, nil
}

// UpdateStatus moves the request from expected to next. An empty notes value
// keeps the stored admin notes.
func (r *rentalRequestRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.RequestStatus, notes string) error {
	logger.DatabaseCall("UPDATE", "rental_requests", "requestID", id, "expected", expected, "next", next)
	query := `UPDATE rental_requests SET status=$1, admin_notes=COALESCE(NULLIF($2, ''), admin_notes), updated_at=$3 WHERE id=$4 AND status=$5`
	res, err := r.db.ExecContext(ctx, query, next, notes, time.Now().UTC(), id, expected)
	if err != nil {
		return mapError(err, domain.ErrRequestNotFound, "update rental request status")
	}
	return expectOne(res, domain.ErrConflict.WithMessage(fmt.Sprintf("rental request %d is no longer %s", id, expected)))
}

func (r *rentalRequestRepository) ListByRequester(ctx context.Context, requesterID int64, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	where := ` WHERE requester_id = $1`
	args := []any{requesterID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}
	return r.list(ctx, where, args, page, pageSize)
}

func (r *rentalRequestRepository) ListByStatus(ctx context.Context, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	if status == "" {
		return r.list(ctx, "", nil, page, pageSize)
	}
	return r.list(ctx, ` WHERE status = $1`, []any{status}, page, pageSize)
}

func (r *rentalRequestRepository) list(ctx context.Context, where string, args []any, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rental_requests`+where, args...).Scan(&count); err != nil {
		return nil, 0, mapError(err, domain.ErrRequestNotFound, "count rental requests")
	}

	limit, offset := pageBounds(page, pageSize)
	query := `SELECT ` + requestColumns + ` FROM rental_requests` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, mapError(err, domain.ErrRequestNotFound, "list rental requests")
	}
	defer rows.Close()

	var requests []domain.RentalRequest
	for rows.Next() {
		rr, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, *rr)
	}
	return requests, count, rows.Err()
}
