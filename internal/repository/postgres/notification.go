package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

type notificationRepository struct {
	db dbtx
}

const notificationColumns = `id, audience, user_id, kind, title, message, related_type, related_id, is_read, created_at`

func scanNotification(row rowScanner) (*domain.Notification, error) {
	n := &domain.Notification{}
	var userID sql.NullInt64
	if err := row.Scan(&n.ID, &n.Audience, &userID, &n.Kind, &n.Title, &n.Message, &n.RelatedType, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		n.UserID = &id
	}
	return n, nil
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "audience", n.Audience, "kind", n.Kind)

	var userID sql.NullInt64
	if n.UserID != nil {
		userID = sql.NullInt64{Int64: *n.UserID, Valid: true}
	}

	now := time.Now().UTC()
	query := `INSERT INTO notifications (audience, user_id, kind, title, message, related_type, related_id, is_read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "audience", n.Audience, "kind", n.Kind)
	err := r.db.QueryRowContext(ctx, query, n.Audience, userID, n.Kind, n.Title, n.Message, n.RelatedType, n.RelatedID, n.IsRead, now).Scan(&n.ID)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "kind", n.Kind)
		return mapError(err, domain.ErrNotificationNotFound, "create notification")
	}
	n.CreatedAt = now
	logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]domain.Notification, int32, error) {
	return r.list(ctx, `audience = 'user' AND user_id = $1`, []any{userID}, limit, offset)
}

func (r *notificationRepository) ListForAdmin(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	return r.list(ctx, `audience = 'admin'`, nil, limit, offset)
}

func (r *notificationRepository) list(ctx context.Context, where string, args []any, limit, offset int32) ([]domain.Notification, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, mapError(err, domain.ErrNotificationNotFound, "count notifications")
	}

	if limit <= 0 {
		limit = 20
	}
	n := len(args)
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, mapError(err, domain.ErrNotificationNotFound, "list notifications")
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		note, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, *note)
	}
	return notes, count, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int64, audience domain.Audience, userID int64) error {
	var (
		res sql.Result
		err error
	)
	if audience == domain.AudienceAdmin {
		res, err = r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND audience = 'admin'`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND audience = 'user' AND user_id = $2`, id, userID)
	}
	if err != nil {
		return mapError(err, domain.ErrNotificationNotFound, "mark notification read")
	}
	return expectOne(res, domain.ErrNotificationNotFound)
}

func (r *notificationRepository) CountUnread(ctx context.Context, audience domain.Audience, userID int64) (int64, error) {
	var (
		n   int64
		err error
	)
	if audience == domain.AudienceAdmin {
		err = r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE audience = 'admin' AND NOT is_read`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE audience = 'user' AND user_id = $1 AND NOT is_read`, userID).Scan(&n)
	}
	if err != nil {
		return 0, mapError(err, domain.ErrNotificationNotFound, "count unread notifications")
	}
	return n, nil
}
