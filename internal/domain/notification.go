package domain

import "time"

type Audience string

const (
	AudienceAdmin Audience = "admin"
	AudienceUser  Audience = "user"
)

type NotificationKind string

const (
	NotificationRequestSubmitted   NotificationKind = "rental_request_submitted"
	NotificationRequestApproved    NotificationKind = "rental_request_approved"
	NotificationRequestRejected    NotificationKind = "rental_request_rejected"
	NotificationRequestCancelled   NotificationKind = "rental_request_cancelled"
	NotificationFavoriteRemoved    NotificationKind = "favorite_removed"
	NotificationExtensionRequested NotificationKind = "extension_requested"
	NotificationExtensionApplied   NotificationKind = "extension_applied"
	NotificationExtensionDeclined  NotificationKind = "extension_declined"
	NotificationTransactionEnded   NotificationKind = "transaction_ended"
	NotificationTransactionExpired NotificationKind = "transaction_expired"
	NotificationPaymentReceived    NotificationKind = "payment_received"
	NotificationExtensionWindow    NotificationKind = "extension_window_open"
)

// RelatedType names the entity a notification points at.
type RelatedType string

const (
	RelatedAsset       RelatedType = "asset"
	RelatedRequest     RelatedType = "rental_request"
	RelatedTransaction RelatedType = "rental_transaction"
)

// Notification is append-only; only IsRead ever changes after creation.
// UserID is nil for admin notifications.
type Notification struct {
	ID          int64            `json:"id"`
	Audience    Audience         `json:"audience"`
	UserID      *int64           `json:"user_id,omitempty"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	RelatedType RelatedType      `json:"related_type"`
	RelatedID   int64            `json:"related_id"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
