package service

import (
	"context"
	"time"

	"asset-rental-backend/internal/domain"
)

// Mutating lifecycle operations return the warnings of side effects that
// degraded after the state change committed. A non-nil error means nothing
// was committed.

type RentalService interface {
	SubmitRequest(ctx context.Context, assetID, requesterID int64, startDate time.Time, durationMonths int) (*domain.RentalRequest, []domain.Warning, error)
	ApproveRequest(ctx context.Context, requestID int64, adminNotes string) (*domain.RentalTransaction, []domain.Warning, error)
	RejectRequest(ctx context.Context, requestID int64, reason string) (*domain.RentalRequest, []domain.Warning, error)
	CancelRequest(ctx context.Context, requestID, requesterID int64) (*domain.RentalRequest, []domain.Warning, error)
	GetRequest(ctx context.Context, requestID int64) (*domain.RentalRequest, error)
	ListMyRequests(ctx context.Context, requesterID int64, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error)
	ListRequests(ctx context.Context, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error)

	GetTransaction(ctx context.Context, transactionID int64) (*domain.RentalTransaction, error)
	ListMyTransactions(ctx context.Context, tenantID int64, page, pageSize int32) ([]domain.RentalTransaction, int32, error)
	RequestExtension(ctx context.Context, transactionID, tenantID int64, additionalMonths int, notes string) (*domain.ExtensionRecord, []domain.Warning, error)
	ConfirmExtension(ctx context.Context, transactionID int64, extensionID int) (*domain.RentalTransaction, []domain.Warning, error)
	DeclineExtension(ctx context.Context, transactionID int64, extensionID int, reason string) (*domain.RentalTransaction, []domain.Warning, error)
	EndTransaction(ctx context.Context, transactionID int64, reason string) (*domain.RentalTransaction, []domain.Warning, error)
	ExpireOverdue(ctx context.Context) ([]int64, error)
	RemindExtensionWindow(ctx context.Context) (int, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, transactionID, amount int64) (*domain.RentalTransaction, []domain.Warning, error)
	SettlePayment(ctx context.Context, requestID, amount int64) (*domain.RentalTransaction, []domain.Warning, error)
	MarkPaymentFailed(ctx context.Context, transactionID int64) (*domain.RentalTransaction, error)
	Checkout(ctx context.Context, transactionID, tenantID int64) (*domain.ChargeToken, error)
	HandleGatewayNotification(ctx context.Context, paymentID string) (*domain.RentalTransaction, []domain.Warning, error)
}

// FavoriteInvalidator removes an asset that stopped being available from
// every favorites list.
type FavoriteInvalidator interface {
	RemoveAssetFromAllFavorites(ctx context.Context, assetID int64) (int, []int64, error)
}

type FavoriteService interface {
	FavoriteInvalidator
	AddFavorite(ctx context.Context, userID, assetID int64) error
	RemoveFavorite(ctx context.Context, userID, assetID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]domain.Favorite, error)
}

type NotificationDispatcher interface {
	NotifyAdmin(ctx context.Context, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error
	NotifyUser(ctx context.Context, userID int64, kind domain.NotificationKind, title, message string, relatedType domain.RelatedType, relatedID int64) error
}

type NotificationService interface {
	ListUserNotifications(ctx context.Context, userID int64, page, pageSize int32) ([]domain.Notification, int32, error)
	ListAdminNotifications(ctx context.Context, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkUserNotificationRead(ctx context.Context, userID, notificationID int64) error
	MarkAdminNotificationRead(ctx context.Context, notificationID int64) error
	CountUnread(ctx context.Context, audience domain.Audience, userID int64) (int64, error)
}

type AssetService interface {
	CreateAsset(ctx context.Context, asset *domain.Asset) error
	GetAsset(ctx context.Context, id int64) (*domain.Asset, error)
	ListAssets(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, int32, error)
	UpdateAsset(ctx context.Context, asset *domain.Asset) error
	SetAssetStatus(ctx context.Context, id int64, status domain.AssetStatus) (*domain.Asset, error)
	DeleteAsset(ctx context.Context, id int64) error
	SuggestPrice(ctx context.Context, features domain.AssetFeatures) (int64, error)
}

type ReportService interface {
	AssetCounts(ctx context.Context) ([]domain.StatusCount, error)
	RequestCounts(ctx context.Context) ([]domain.StatusCount, error)
	Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueSummary, error)
	Occupancy(ctx context.Context) (*domain.Occupancy, error)
	MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error)
	ExpiringSoon(ctx context.Context, days int) ([]domain.RentalTransaction, error)
}

// PricePredictor estimates a monthly price. It is advisory only and never
// consulted during lifecycle transitions.
type PricePredictor interface {
	Estimate(ctx context.Context, features domain.AssetFeatures) (int64, error)
}

type PaymentGateway interface {
	CreateChargeToken(ctx context.Context, draft domain.ChargeDraft) (*domain.ChargeToken, error)
	VerifyPayment(ctx context.Context, paymentID string) (*domain.PaymentVerification, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, plainText, html string) error
}

type PushSender interface {
	SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error
}
