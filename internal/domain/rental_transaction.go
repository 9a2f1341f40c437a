package domain

import (
	"fmt"
	"slices"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusActive     TransactionStatus = "active"
	TransactionStatusExtended   TransactionStatus = "extended"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusTerminated TransactionStatus = "terminated"
)

// IsOpen reports whether the contract still holds the asset.
func (s TransactionStatus) IsOpen() bool {
	return s == TransactionStatusActive || s == TransactionStatusExtended
}

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

const (
	// ExtensionWindowDays is how close to the current end date a contract must
	// be before an extension may be requested.
	ExtensionWindowDays = 30
	MinExtensionMonths  = 1
	MaxExtensionMonths  = 12
)

type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusApplied  ExtensionStatus = "applied"
	ExtensionStatusDeclined ExtensionStatus = "declined"
)

// ExtensionRecord is one entry of a transaction's append-only extension history.
type ExtensionRecord struct {
	ID               int             `json:"id"`
	RequestedAt      time.Time       `json:"requested_at"`
	AdditionalMonths int             `json:"additional_months"`
	PreviousEndDate  time.Time       `json:"previous_end_date"`
	NewEndDate       time.Time       `json:"new_end_date"`
	Notes            string          `json:"notes,omitempty"`
	Status           ExtensionStatus `json:"status"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
	DecisionNote     string          `json:"decision_note,omitempty"`
}

type RentalTransaction struct {
	ID               int64             `json:"id"`
	RentalRequestID  int64             `json:"rental_request_id"`
	AssetID          int64             `json:"asset_id"`
	TenantID         int64             `json:"tenant_id"`
	StartDate        time.Time         `json:"start_date"`
	EndDate          time.Time         `json:"end_date"`
	CurrentEndDate   time.Time         `json:"current_end_date"`
	MonthlyPrice     int64             `json:"monthly_price"`
	TotalMonths      int               `json:"total_months"`
	PaidAmount       int64             `json:"paid_amount"`
	RemainingAmount  int64             `json:"remaining_amount"`
	Status           TransactionStatus `json:"status"`
	PaymentStatus    PaymentStatus     `json:"payment_status"`
	ExtensionCount   int               `json:"extension_count"`
	ExtensionHistory []ExtensionRecord `json:"extension_history"`
	EndReason        string            `json:"end_reason,omitempty"`
	PaymentRefs      []string          `json:"-"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewTransactionFromRequest seeds an active, unpaid contract from an approved
// request's snapshot.
func NewTransactionFromRequest(req *RentalRequest) *RentalTransaction {
	total := int64(req.DurationMonths) * req.MonthlyPrice
	return &RentalTransaction{
		RentalRequestID:  req.ID,
		AssetID:          req.AssetID,
		TenantID:         req.RequesterID,
		StartDate:        DateOf(req.StartDate),
		EndDate:          DateOf(req.EndDate),
		CurrentEndDate:   DateOf(req.EndDate),
		MonthlyPrice:     req.MonthlyPrice,
		TotalMonths:      req.DurationMonths,
		RemainingAmount:  total,
		Status:           TransactionStatusActive,
		PaymentStatus:    PaymentStatusUnpaid,
		ExtensionHistory: []ExtensionRecord{},
	}
}

// ContractValue is the full price of the contract including applied extensions.
func (t *RentalTransaction) ContractValue() int64 {
	return int64(t.TotalMonths) * t.MonthlyPrice
}

// DaysRemaining counts days from today until the current end date.
func (t *RentalTransaction) DaysRemaining(today time.Time) int {
	return DaysBetween(today, t.CurrentEndDate)
}

// CanExtend reports whether a new extension may be requested today.
func (t *RentalTransaction) CanExtend(today time.Time) bool {
	if !t.Status.IsOpen() {
		return false
	}
	if t.PaymentStatus != PaymentStatusPartial && t.PaymentStatus != PaymentStatusPaid {
		return false
	}
	return t.DaysRemaining(today) <= ExtensionWindowDays
}

// PendingExtension returns the pending history entry, if any.
func (t *RentalTransaction) PendingExtension() *ExtensionRecord {
	for i := range t.ExtensionHistory {
		if t.ExtensionHistory[i].Status == ExtensionStatusPending {
			return &t.ExtensionHistory[i]
		}
	}
	return nil
}

// Extension looks up a history entry by its id.
func (t *RentalTransaction) Extension(id int) *ExtensionRecord {
	for i := range t.ExtensionHistory {
		if t.ExtensionHistory[i].ID == id {
			return &t.ExtensionHistory[i]
		}
	}
	return nil
}

// AppendExtensionRequest validates and records a pending extension without
// touching the contract dates.
func (t *RentalTransaction) AppendExtensionRequest(months int, notes string, now time.Time) (*ExtensionRecord, error) {
	if months < MinExtensionMonths || months > MaxExtensionMonths {
		return nil, ErrInvalidMonths
	}
	if !t.CanExtend(now) {
		return nil, ErrExtensionNotAllowed
	}
	if t.PendingExtension() != nil {
		return nil, ErrExtensionAlreadyPending
	}
	rec := ExtensionRecord{
		ID:               len(t.ExtensionHistory) + 1,
		RequestedAt:      now,
		AdditionalMonths: months,
		PreviousEndDate:  t.CurrentEndDate,
		NewEndDate:       AddMonths(t.CurrentEndDate, months),
		Notes:            notes,
		Status:           ExtensionStatusPending,
	}
	t.ExtensionHistory = append(t.ExtensionHistory, rec)
	return &t.ExtensionHistory[len(t.ExtensionHistory)-1], nil
}

// ApplyExtension moves a pending record to applied and advances the contract.
// The new end date is re-derived from the live current end date.
func (t *RentalTransaction) ApplyExtension(id int, now time.Time) (*ExtensionRecord, error) {
	if !t.Status.IsOpen() {
		return nil, ErrTransactionNotActive
	}
	rec := t.Extension(id)
	if rec == nil {
		return nil, ErrExtensionNotFound
	}
	if rec.Status != ExtensionStatusPending {
		return nil, ErrExtensionNotPending
	}
	decided := now
	rec.PreviousEndDate = t.CurrentEndDate
	rec.NewEndDate = AddMonths(t.CurrentEndDate, rec.AdditionalMonths)
	rec.Status = ExtensionStatusApplied
	rec.DecidedAt = &decided

	t.CurrentEndDate = rec.NewEndDate
	t.TotalMonths += rec.AdditionalMonths
	t.ExtensionCount++
	t.Status = TransactionStatusExtended
	t.RecalculateBalance()
	return rec, nil
}

// DeclineExtension closes a pending record without changing the contract.
func (t *RentalTransaction) DeclineExtension(id int, note string, now time.Time) (*ExtensionRecord, error) {
	rec := t.Extension(id)
	if rec == nil {
		return nil, ErrExtensionNotFound
	}
	if rec.Status != ExtensionStatusPending {
		return nil, ErrExtensionNotPending
	}
	decided := now
	rec.Status = ExtensionStatusDeclined
	rec.DecidedAt = &decided
	rec.DecisionNote = note
	return rec, nil
}

// ApplyPayment adds amount to the paid total and refreshes the payment status.
// A payment larger than the remaining balance is rejected.
func (t *RentalTransaction) ApplyPayment(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > t.RemainingAmount {
		return ErrInvalidAmount.WithMessage(fmt.Sprintf("amount %d exceeds remaining balance %d", amount, t.RemainingAmount))
	}
	t.PaidAmount += amount
	t.RecalculateBalance()
	return nil
}

// GatewayCredit is the outcome of applying a captured gateway payment.
type GatewayCredit struct {
	Applied  bool
	Credited int64
	Excess   int64
}

// ApplyGatewayPayment applies amount at most once per gateway payment id. The
// gateway has already captured the money, so the credit is capped at the
// remaining balance and anything above it is reported as excess.
func (t *RentalTransaction) ApplyGatewayPayment(paymentID string, amount int64) (GatewayCredit, error) {
	if paymentID != "" && slices.Contains(t.PaymentRefs, paymentID) {
		return GatewayCredit{}, nil
	}
	if amount <= 0 {
		return GatewayCredit{}, ErrInvalidAmount
	}
	credit := GatewayCredit{Applied: true, Credited: min(amount, max(t.RemainingAmount, 0))}
	credit.Excess = amount - credit.Credited
	if credit.Credited > 0 {
		if err := t.ApplyPayment(credit.Credited); err != nil {
			return GatewayCredit{}, err
		}
	}
	if paymentID != "" {
		t.PaymentRefs = append(t.PaymentRefs, paymentID)
	}
	return credit, nil
}

// MarkPaymentFailed flags an unpaid contract whose charge was declined.
func (t *RentalTransaction) MarkPaymentFailed() bool {
	if t.PaymentStatus != PaymentStatusUnpaid {
		return false
	}
	t.PaymentStatus = PaymentStatusFailed
	return true
}

// RecalculateBalance restores remaining = total_months * monthly_price - paid
// and derives the payment status from it.
func (t *RentalTransaction) RecalculateBalance() {
	t.RemainingAmount = t.ContractValue() - t.PaidAmount
	switch {
	case t.PaidAmount <= 0:
		if t.PaymentStatus != PaymentStatusFailed {
			t.PaymentStatus = PaymentStatusUnpaid
		}
	case t.RemainingAmount <= 0:
		t.PaymentStatus = PaymentStatusPaid
	default:
		t.PaymentStatus = PaymentStatusPartial
	}
}

// Close ends an open contract with endDate as its final current end date.
func (t *RentalTransaction) Close(status TransactionStatus, endDate time.Time, reason string) error {
	if !t.Status.IsOpen() {
		return ErrTransactionNotActive
	}
	end := DateOf(endDate)
	if end.Before(t.StartDate) {
		end = t.StartDate
	}
	t.Status = status
	t.CurrentEndDate = end
	t.EndReason = reason
	return nil
}
