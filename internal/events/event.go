// Package events carries lifecycle facts from a committed unit of work to the
// side effects that react to them.
package events

import (
	"context"
	"errors"
	"time"

	"asset-rental-backend/internal/domain"
)

type Kind string

const (
	KindRequestSubmitted    Kind = "rental_request.submitted"
	KindRequestApproved     Kind = "rental_request.approved"
	KindRequestRejected     Kind = "rental_request.rejected"
	KindRequestCancelled    Kind = "rental_request.cancelled"
	KindExtensionRequested  Kind = "extension.requested"
	KindExtensionApplied    Kind = "extension.applied"
	KindExtensionDeclined   Kind = "extension.declined"
	KindExtensionWindowOpen Kind = "extension.window_open"
	KindTransactionEnded    Kind = "rental_transaction.ended"
	KindTransactionExpired  Kind = "rental_transaction.expired"
	KindPaymentReceived     Kind = "payment.received"

	KindFavoritesRevocation Kind = "favorites.revocation"
	KindNotificationDue     Kind = "notification.due"
)

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

type RequestSubmitted struct {
	RequestID      int64     `json:"request_id"`
	AssetID        int64     `json:"asset_id"`
	AssetTitle     string    `json:"asset_title"`
	RequesterID    int64     `json:"requester_id"`
	StartDate      time.Time `json:"start_date"`
	DurationMonths int       `json:"duration_months"`
	TotalPrice     int64     `json:"total_price"`
}

type RequestApproved struct {
	RequestID     int64  `json:"request_id"`
	TransactionID int64  `json:"transaction_id"`
	AssetID       int64  `json:"asset_id"`
	AssetTitle    string `json:"asset_title"`
	RequesterID   int64  `json:"requester_id"`
}

type RequestRejected struct {
	RequestID   int64  `json:"request_id"`
	AssetID     int64  `json:"asset_id"`
	RequesterID int64  `json:"requester_id"`
	Reason      string `json:"reason"`
}

type RequestCancelled struct {
	RequestID   int64 `json:"request_id"`
	AssetID     int64 `json:"asset_id"`
	RequesterID int64 `json:"requester_id"`
}

type ExtensionRequested struct {
	TransactionID    int64     `json:"transaction_id"`
	TenantID         int64     `json:"tenant_id"`
	ExtensionID      int       `json:"extension_id"`
	AdditionalMonths int       `json:"additional_months"`
	NewEndDate       time.Time `json:"new_end_date"`
}

type ExtensionApplied struct {
	TransactionID    int64     `json:"transaction_id"`
	TenantID         int64     `json:"tenant_id"`
	ExtensionID      int       `json:"extension_id"`
	AdditionalMonths int       `json:"additional_months"`
	NewEndDate       time.Time `json:"new_end_date"`
	RemainingAmount  int64     `json:"remaining_amount"`
}

type ExtensionDeclined struct {
	TransactionID int64  `json:"transaction_id"`
	TenantID      int64  `json:"tenant_id"`
	ExtensionID   int    `json:"extension_id"`
	Reason        string `json:"reason"`
}

// ExtensionWindowOpen is raised by the reminder job, not by a state change.
type ExtensionWindowOpen struct {
	TransactionID  int64     `json:"transaction_id"`
	TenantID       int64     `json:"tenant_id"`
	CurrentEndDate time.Time `json:"current_end_date"`
	DaysRemaining  int       `json:"days_remaining"`
}

type TransactionEnded struct {
	TransactionID int64     `json:"transaction_id"`
	AssetID       int64     `json:"asset_id"`
	TenantID      int64     `json:"tenant_id"`
	EndDate       time.Time `json:"end_date"`
	Reason        string    `json:"reason"`
}

type TransactionExpired struct {
	TransactionID int64     `json:"transaction_id"`
	AssetID       int64     `json:"asset_id"`
	TenantID      int64     `json:"tenant_id"`
	EndDate       time.Time `json:"end_date"`
}

type PaymentReceived struct {
	TransactionID   int64                `json:"transaction_id"`
	TenantID        int64                `json:"tenant_id"`
	Amount          int64                `json:"amount"`
	RemainingAmount int64                `json:"remaining_amount"`
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
}

// FavoritesRevocation clears every favorite of a rented asset. Users other
// than the renter are told their favorite is gone.
type FavoritesRevocation struct {
	AssetID    int64  `json:"asset_id"`
	AssetTitle string `json:"asset_title"`
	RenterID   int64  `json:"renter_id"`
}

// NotificationDue is a single notification delivery planned from another event.
type NotificationDue struct {
	Audience         domain.Audience         `json:"audience"`
	UserID           int64                   `json:"user_id,omitempty"`
	NotificationKind domain.NotificationKind `json:"notification_kind"`
	Title            string                  `json:"title"`
	Message          string                  `json:"message"`
	RelatedType      domain.RelatedType      `json:"related_type"`
	RelatedID        int64                   `json:"related_id"`
}

func (RequestSubmitted) Kind() Kind    { return KindRequestSubmitted }
func (RequestApproved) Kind() Kind     { return KindRequestApproved }
func (RequestRejected) Kind() Kind     { return KindRequestRejected }
func (RequestCancelled) Kind() Kind    { return KindRequestCancelled }
func (ExtensionRequested) Kind() Kind  { return KindExtensionRequested }
func (ExtensionApplied) Kind() Kind    { return KindExtensionApplied }
func (ExtensionDeclined) Kind() Kind   { return KindExtensionDeclined }
func (ExtensionWindowOpen) Kind() Kind { return KindExtensionWindowOpen }
func (TransactionEnded) Kind() Kind    { return KindTransactionEnded }
func (TransactionExpired) Kind() Kind  { return KindTransactionExpired }
func (PaymentReceived) Kind() Kind     { return KindPaymentReceived }
func (FavoritesRevocation) Kind() Kind { return KindFavoritesRevocation }
func (NotificationDue) Kind() Kind     { return KindNotificationDue }

func (RequestSubmitted) isEvent()    {}
func (RequestApproved) isEvent()     {}
func (RequestRejected) isEvent()     {}
func (RequestCancelled) isEvent()    {}
func (ExtensionRequested) isEvent()  {}
func (ExtensionApplied) isEvent()    {}
func (ExtensionDeclined) isEvent()   {}
func (ExtensionWindowOpen) isEvent() {}
func (TransactionEnded) isEvent()    {}
func (TransactionExpired) isEvent()  {}
func (PaymentReceived) isEvent()     {}
func (FavoritesRevocation) isEvent() {}
func (NotificationDue) isEvent()     {}

// Handler reacts to a committed event. A failed Handle leaves nothing behind,
// so it is safe to retry. A successful one may return follow-up events; each
// is delivered and retried on its own, so a failure in one follow-up never
// repeats the work of the event that produced it.
type Handler interface {
	Handle(ctx context.Context, e Event) ([]Event, error)
}

type HandlerFunc func(ctx context.Context, e Event) ([]Event, error)

func (f HandlerFunc) Handle(ctx context.Context, e Event) ([]Event, error) {
	return f(ctx, e)
}

// Publisher hands an event to its handlers. A returned error never undoes
// the state change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// EffectError names the side effect that failed.
type EffectError struct {
	Effect string
	Err    error
}

func (e *EffectError) Error() string {
	return e.Effect + ": " + e.Err.Error()
}

func (e *EffectError) Unwrap() error {
	return e.Err
}

// Warnings flattens a publish error into one warning per failed effect.
func Warnings(err error) []domain.Warning {
	if err == nil {
		return nil
	}
	var out []domain.Warning
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var effect *EffectError
		if errors.As(err, &effect) {
			out = append(out, domain.Warning{Effect: effect.Effect, Message: effect.Err.Error()})
			return
		}
		out = append(out, domain.Warning{Effect: "publish", Message: err.Error()})
	}
	walk(err)
	return out
}
