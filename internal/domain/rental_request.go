package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// MaxDurationMonths bounds a single request so its end date and total price
// stay within the stored integer ranges.
const MaxDurationMonths = 120

// RentalRequest is a tenant's application for an asset. Price fields are a
// snapshot taken at submission and are never re-derived from the asset.
type RentalRequest struct {
	ID             int64         `json:"id"`
	AssetID        int64         `json:"asset_id"`
	RequesterID    int64         `json:"requester_id"`
	StartDate      time.Time     `json:"start_date"`
	DurationMonths int           `json:"duration_months"`
	EndDate        time.Time     `json:"end_date"`
	MonthlyPrice   int64         `json:"monthly_price"`
	TotalPrice     int64         `json:"total_price"`
	Status         RequestStatus `json:"status"`
	AdminNotes     string        `json:"admin_notes"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// CanTransitionTo reports whether the request state machine permits moving to next.
func (r *RentalRequest) CanTransitionTo(next RequestStatus) bool {
	switch r.Status {
	case RequestStatusPending:
		return next == RequestStatusApproved || next == RequestStatusRejected || next == RequestStatusCancelled
	case RequestStatusApproved:
		return next == RequestStatusCompleted
	}
	return false
}
