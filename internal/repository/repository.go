package repository

import (
	"context"
	"time"

	"asset-rental-backend/internal/domain"
)

// Status-changing methods are check-and-set: they return domain.ErrConflict when
// the row no longer holds the expected status (or version), so a concurrent
// writer can never be silently overwritten.

type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Asset, error)
	Update(ctx context.Context, asset *domain.Asset) error
	UpdateStatus(ctx context.Context, id int64, expected, next domain.AssetStatus) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, int32, error)
	HasRentalHistory(ctx context.Context, id int64) (bool, error)
}

type RentalRequestRepository interface {
	Create(ctx context.Context, req *domain.RentalRequest) error
	GetByID(ctx context.Context, id int64) (*domain.RentalRequest, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalRequest, error)
	UpdateStatus(ctx context.Context, id int64, expected, next domain.RequestStatus, notes string) error
	ListByRequester(ctx context.Context, requesterID int64, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error)
}

type RentalTransactionRepository interface {
	Create(ctx context.Context, tx *domain.RentalTransaction) error
	GetByID(ctx context.Context, id int64) (*domain.RentalTransaction, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalTransaction, error)
	GetByRequestID(ctx context.Context, requestID int64) (*domain.RentalTransaction, error)
	// Update persists every mutable field when tx.Version still matches the
	// stored row, then advances tx.Version.
	Update(ctx context.Context, tx *domain.RentalTransaction) error
	ListByTenant(ctx context.Context, tenantID int64, page, pageSize int32) ([]domain.RentalTransaction, int32, error)
	ListOverdueIDs(ctx context.Context, today time.Time) ([]int64, error)
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]domain.RentalTransaction, error)
	CountOpenByAsset(ctx context.Context, assetID int64) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListForUser(ctx context.Context, userID int64, limit, offset int32) ([]domain.Notification, int32, error)
	ListForAdmin(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error)
	// MarkAsRead flips the read flag of a notification addressed to the given
	// audience; userID is ignored for admin notifications.
	MarkAsRead(ctx context.Context, id int64, audience domain.Audience, userID int64) error
	CountUnread(ctx context.Context, audience domain.Audience, userID int64) (int64, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, userID, assetID int64) error
	Remove(ctx context.Context, userID, assetID int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Favorite, error)
	// RemoveAllForAsset deletes every favorite of the asset and returns the
	// owners of the removed rows.
	RemoveAllForAsset(ctx context.Context, assetID int64) ([]int64, error)
}

type ReportRepository interface {
	AssetStatusCounts(ctx context.Context) ([]domain.StatusCount, error)
	RequestStatusCounts(ctx context.Context) ([]domain.StatusCount, error)
	Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueSummary, error)
	MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error)
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Assets        AssetRepository
	Requests      RentalRequestRepository
	Transactions  RentalTransactionRepository
	Notifications NotificationRepository
	Favorites     FavoriteRepository
}

// TxFunc runs inside a unit of work. Returning an error rolls back every write
// made through repos.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store is the entity store. Repos are auto-committing; WithTx groups writes
// into a single atomic unit.
type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn TxFunc) error
}
