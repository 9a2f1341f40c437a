package postgres

import (
	"context"
	"fmt"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var openStatuses = pq.Array([]string{
	string(domain.TransactionStatusActive),
	string(domain.TransactionStatusExtended),
})

type rentalTransactionRepository struct {
	db dbtx
}

const transactionColumns = `id, rental_request_id, asset_id, tenant_id, start_date, end_date, current_end_date, monthly_price, total_months,
	paid_amount, remaining_amount, status, payment_status, extension_count, extension_history, end_reason, payment_refs, version, created_at, updated_at`

func scanTransaction(row rowScanner) (*domain.RentalTransaction, error) {
	t := &domain.RentalTransaction{}
	var history []byte
	err := row.Scan(&t.ID, &t.RentalRequestID, &t.AssetID, &t.TenantID, &t.StartDate, &t.EndDate, &t.CurrentEndDate, &t.MonthlyPrice, &t.TotalMonths,
		&t.PaidAmount, &t.RemainingAmount, &t.Status, &t.PaymentStatus, &t.ExtensionCount, &history, &t.EndReason, pq.Array(&t.PaymentRefs), &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.StartDate = domain.DateOf(t.StartDate)
	t.EndDate = domain.DateOf(t.EndDate)
	t.CurrentEndDate = domain.DateOf(t.CurrentEndDate)

	t.ExtensionHistory = []domain.ExtensionRecord{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &t.ExtensionHistory); err != nil {
			return nil, fmt.Errorf("decode extension history of transaction %d: %w", t.ID, err)
		}
	}
	return t, nil
}

func encodeHistory(history []domain.ExtensionRecord) ([]byte, error) {
	if history == nil {
		history = []domain.ExtensionRecord{}
	}
	return json.Marshal(history)
}

func (r *rentalTransactionRepository) Create(ctx context.Context, t *domain.RentalTransaction) error {
	logger.EnterMethod("rentalTransactionRepository.Create", "requestID", t.RentalRequestID, "assetID", t.AssetID)

	history, err := encodeHistory(t.ExtensionHistory)
	if err != nil {
		logger.ExitMethodWithError("rentalTransactionRepository.Create", err, "reason", "failed to marshal extension history")
		return err
	}

	now := time.Now().UTC()
	if t.Version == 0 {
		t.Version = 1
	}
	query := `INSERT INTO rental_transactions (rental_request_id, asset_id, tenant_id, start_date, end_date, current_end_date, monthly_price, total_months,
	              paid_amount, remaining_amount, status, payment_status, extension_count, extension_history, end_reason, payment_refs, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19) RETURNING id`
	logger.DatabaseCall("INSERT", "rental_transactions", "requestID", t.RentalRequestID)
	err = r.db.QueryRowContext(ctx, query, t.RentalRequestID, t.AssetID, t.TenantID, t.StartDate, t.EndDate, t.CurrentEndDate, t.MonthlyPrice, t.TotalMonths,
		t.PaidAmount, t.RemainingAmount, t.Status, t.PaymentStatus, t.ExtensionCount, history, t.EndReason, paymentRefs(t), t.Version, now, now).Scan(&t.ID)
	logger.DatabaseResult("INSERT", 1, err, "transactionID", t.ID)

	if err != nil {
		logger.ExitMethodWithError("rentalTransactionRepository.Create", err)
		return mapError(err, domain.ErrTransactionNotFound, "create rental transaction")
	}
	t.CreatedAt, t.UpdatedAt = now, now
	logger.ExitMethod("rentalTransactionRepository.Create", "transactionID", t.ID)
	return nil
}

func (r *rentalTransactionRepository) GetByID(ctx context.Context, id int64) (*domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions WHERE id = $1`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound, "get rental transaction")
	}
	return t, nil
}

func (r *rentalTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions WHERE id = $1 FOR UPDATE`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound, "lock rental transaction")
	}
	return t, nil
}

func (r *rentalTransactionRepository) GetByRequestID(ctx context.Context, requestID int64) (*domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions WHERE rental_request_id = $1`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound, "get rental transaction by request")
	}
	return t, nil
}

func (r *rentalTransactionRepository) Update(ctx context.Context, t *domain.RentalTransaction) error {
	history, err := encodeHistory(t.ExtensionHistory)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	query := `UPDATE rental_transactions SET current_end_date=$1, total_months=$2, paid_amount=$3, remaining_amount=$4, status=$5, payment_status=$6,
	              extension_count=$7, extension_history=$8, end_reason=$9, payment_refs=$10, version=version+1, updated_at=$11
	          WHERE id=$12 AND version=$13`
	logger.DatabaseCall("UPDATE", "rental_transactions", "transactionID", t.ID, "version", t.Version)
	res, err := r.db.ExecContext(ctx, query, t.CurrentEndDate, t.TotalMonths, t.PaidAmount, t.RemainingAmount, t.Status, t.PaymentStatus,
		t.ExtensionCount, history, t.EndReason, paymentRefs(t), now, t.ID, t.Version)
	if err != nil {
		return mapError(err, domain.ErrTransactionNotFound, "update rental transaction")
	}
	if err := expectOne(res, domain.ErrConflict.WithMessage(fmt.Sprintf("rental transaction %d changed concurrently", t.ID))); err != nil {
		return err
	}
	t.Version++
	t.UpdatedAt = now
	return nil
}

func (r *rentalTransactionRepository) ListByTenant(ctx context.Context, tenantID int64, page, pageSize int32) ([]domain.RentalTransaction, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM rental_transactions WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return nil, 0, mapError(err, domain.ErrTransactionNotFound, "count rental transactions")
	}

	limit, offset := pageBounds(page, pageSize)
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions WHERE tenant_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	txs, err := r.query(ctx, query, tenantID, limit, offset)
	return txs, count, err
}

// ListOverdueIDs returns open contracts whose current end date is before today.
func (r *rentalTransactionRepository) ListOverdueIDs(ctx context.Context, today time.Time) ([]int64, error) {
	query := `SELECT id FROM rental_transactions WHERE status = ANY($1) AND current_end_date < $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, openStatuses, domain.DateOf(today))
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound, "list overdue transactions")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *rentalTransactionRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions
	          WHERE status = ANY($1) AND current_end_date BETWEEN $2 AND $3 ORDER BY current_end_date, id`
	return r.query(ctx, query, openStatuses, domain.DateOf(from), domain.DateOf(to))
}

func (r *rentalTransactionRepository) CountOpenByAsset(ctx context.Context, assetID int64) (int, error) {
	var n int
	query := `SELECT count(*) FROM rental_transactions WHERE asset_id = $1 AND status = ANY($2)`
	if err := r.db.QueryRowContext(ctx, query, assetID, openStatuses).Scan(&n); err != nil {
		return 0, mapError(err, domain.ErrTransactionNotFound, "count open transactions")
	}
	return n, nil
}

func (r *rentalTransactionRepository) query(ctx context.Context, query string, args ...any) ([]domain.RentalTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, domain.ErrTransactionNotFound, "list rental transactions")
	}
	defer rows.Close()

	var txs []domain.RentalTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// paymentRefs never binds NULL; pq.StringArray encodes nil as NULL.
func paymentRefs(t *domain.RentalTransaction) pq.StringArray {
	if t.PaymentRefs == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(t.PaymentRefs)
}
