package domain

import "fmt"

// ChargeDraft describes an amount the tenant is asked to pay for a contract.
type ChargeDraft struct {
	TransactionID int64
	RequestID     int64
	Title         string
	Amount        int64
	Currency      string
	PayerEmail    string
}

// ExternalReference ties a gateway payment back to its rental request.
func (d ChargeDraft) ExternalReference() string {
	return fmt.Sprintf("rental-request-%d", d.RequestID)
}

// ChargeToken is what the client needs to start the gateway checkout.
type ChargeToken struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type GatewayPaymentStatus string

const (
	GatewayPaymentApproved GatewayPaymentStatus = "approved"
	GatewayPaymentPending  GatewayPaymentStatus = "pending"
	GatewayPaymentRejected GatewayPaymentStatus = "rejected"
)

// PaymentVerification is the gateway's authoritative view of one payment.
type PaymentVerification struct {
	PaymentID         string
	ExternalReference string
	Status            GatewayPaymentStatus
	Amount            int64
}

// RequestIDFromReference parses an ExternalReference value.
func RequestIDFromReference(ref string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(ref, "rental-request-%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
