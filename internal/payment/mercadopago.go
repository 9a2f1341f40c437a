// Package payment adapts the Mercado Pago checkout API to the rental
// lifecycle's payment gateway contract.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
)

var (
	ErrMissingAccessToken = errors.New("missing mercado pago access token")
	ErrUnknownPayment     = errors.New("unknown payment")
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

type paymentGetter interface {
	Get(ctx context.Context, id int) (*mppayment.Response, error)
}

// MercadoPagoGateway creates checkout preferences for outstanding balances and
// looks payments up when the gateway notifies us. In mock mode no network
// call is made and every charge is approved.
type MercadoPagoGateway struct {
	preferences     preferenceCreator
	payments        paymentGetter
	notificationURL string

	mockMode bool
	mu       sync.Mutex
	mocked   map[string]domain.ChargeDraft
}

func NewMercadoPagoGateway(accessToken, notificationURL string, mock bool) (*MercadoPagoGateway, error) {
	if mock {
		logger.Info("Payment gateway mock mode enabled")
		return &MercadoPagoGateway{mockMode: true, mocked: map[string]domain.ChargeDraft{}}, nil
	}
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed creating mercado pago config: %w", err)
	}
	logger.Info("Mercado Pago client initialized")

	return &MercadoPagoGateway{
		preferences:     preference.NewClient(cfg),
		payments:        mppayment.NewClient(cfg),
		notificationURL: notificationURL,
	}, nil
}

func (g *MercadoPagoGateway) CreateChargeToken(ctx context.Context, draft domain.ChargeDraft) (*domain.ChargeToken, error) {
	if draft.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if g.mockMode {
		id := "mock-" + strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		g.mu.Lock()
		g.mocked[id] = draft
		g.mu.Unlock()
		logger.Debug("Mock charge created", "paymentID", id, "reference", draft.ExternalReference())
		return &domain.ChargeToken{Token: id}, nil
	}

	req := preference.Request{
		Items: []preference.ItemRequest{{
			ID:         strconv.FormatInt(draft.TransactionID, 10),
			Title:      draft.Title,
			Quantity:   1,
			UnitPrice:  float64(draft.Amount),
			CurrencyID: draft.Currency,
		}},
		ExternalReference: draft.ExternalReference(),
		NotificationURL:   g.notificationURL,
	}
	if draft.PayerEmail != "" {
		req.Payer = &preference.PayerRequest{Email: draft.PayerEmail}
	}

	resp, err := g.preferences.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	logger.Debug("Checkout preference created", "preferenceID", resp.ID, "reference", req.ExternalReference)
	return &domain.ChargeToken{Token: resp.ID, RedirectURL: resp.InitPoint}, nil
}

func (g *MercadoPagoGateway) VerifyPayment(ctx context.Context, paymentID string) (*domain.PaymentVerification, error) {
	if g.mockMode {
		g.mu.Lock()
		draft, ok := g.mocked[paymentID]
		g.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPayment, paymentID)
		}
		return &domain.PaymentVerification{
			PaymentID:         paymentID,
			ExternalReference: draft.ExternalReference(),
			Status:            domain.GatewayPaymentApproved,
			Amount:            draft.Amount,
		}, nil
	}

	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a mercado pago payment id", ErrUnknownPayment, paymentID)
	}
	resp, err := g.payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment %d: %w", id, err)
	}
	return &domain.PaymentVerification{
		PaymentID:         strconv.Itoa(resp.ID),
		ExternalReference: resp.ExternalReference,
		Status:            mapStatus(resp.Status),
		Amount:            int64(math.Round(resp.TransactionAmount)),
	}, nil
}

func mapStatus(status string) domain.GatewayPaymentStatus {
	switch status {
	case "approved":
		return domain.GatewayPaymentApproved
	case "rejected", "cancelled", "refunded", "charged_back":
		return domain.GatewayPaymentRejected
	default:
		return domain.GatewayPaymentPending
	}
}
