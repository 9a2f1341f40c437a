package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/events"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/repository"
)

type PaymentOptions struct {
	Currency        string
	Now             func() time.Time
	ConflictRetries int
}

// paymentService shares the coordinator's units of work so that a verified
// gateway payment can approve its request in the same commit.
type paymentService struct {
	rentals  *rentalService
	gateway  PaymentGateway
	currency string
}

func NewPaymentService(store repository.Store, publisher events.Publisher, gateway PaymentGateway, opts PaymentOptions) PaymentService {
	if opts.Currency == "" {
		opts.Currency = "IDR"
	}
	return &paymentService{
		rentals:  newRentalService(store, publisher, RentalOptions{Now: opts.Now, ConflictRetries: opts.ConflictRetries}),
		gateway:  gateway,
		currency: opts.Currency,
	}
}

func (s *paymentService) RecordPayment(ctx context.Context, transactionID, amount int64) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("PaymentService.RecordPayment", "transactionID", transactionID, "amount", amount)

	if amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	tx, err := s.rentals.mutateTransaction(ctx, "record_payment", transactionID, func(_ context.Context, _ repository.Repositories, tx *domain.RentalTransaction) error {
		return tx.ApplyPayment(amount)
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.RecordPayment", err, "transactionID", transactionID)
		return nil, nil, err
	}

	warnings := s.rentals.publish(ctx, paymentReceived(tx, amount))
	logger.ExitMethod("PaymentService.RecordPayment", "transactionID", transactionID, "paymentStatus", tx.PaymentStatus)
	return tx, warnings, nil
}

func (s *paymentService) SettlePayment(ctx context.Context, requestID, amount int64) (*domain.RentalTransaction, []domain.Warning, error) {
	return s.settle(ctx, requestID, "", amount)
}

// settle approves the request if it is still pending and applies the payment
// to its transaction, all in one unit. A gateway payment id already applied
// to the transaction is acknowledged without changing anything. Manual
// settlements above the balance are rejected; captured gateway payments are
// credited up to the balance and the excess is reported as a warning.
func (s *paymentService) settle(ctx context.Context, requestID int64, paymentID string, amount int64) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("PaymentService.SettlePayment", "requestID", requestID, "paymentID", paymentID, "amount", amount)

	if amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}

	var (
		tx       *domain.RentalTransaction
		approved *events.RequestApproved
		credit   domain.GatewayCredit
	)
	err := retryOnConflict(ctx, s.rentals.opts.ConflictRetries, "settle_payment", func(ctx context.Context) error {
		approved, credit = nil, domain.GatewayCredit{}
		return s.rentals.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
			if err != nil {
				return err
			}

			switch req.Status {
			case domain.RequestStatusPending:
				tx, approved, err = s.rentals.approveInTx(ctx, repos, requestID, "approved on verified payment")
			case domain.RequestStatusApproved, domain.RequestStatusCompleted:
				tx, err = repos.Transactions.GetByRequestID(ctx, requestID)
			default:
				err = domain.ErrRequestNotPending.WithMessage(fmt.Sprintf("rental request %d is %s", req.ID, req.Status))
			}
			if err != nil {
				return err
			}

			if paymentID == "" {
				if err = tx.ApplyPayment(amount); err != nil {
					return err
				}
				credit = domain.GatewayCredit{Applied: true, Credited: amount}
				return repos.Transactions.Update(ctx, tx)
			}
			credit, err = tx.ApplyGatewayPayment(paymentID, amount)
			if err != nil || !credit.Applied {
				return err
			}
			return repos.Transactions.Update(ctx, tx)
		})
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.SettlePayment", err, "requestID", requestID)
		return nil, nil, err
	}

	var warnings []domain.Warning
	if approved != nil {
		warnings = append(warnings, s.rentals.publish(ctx, *approved)...)
	}
	switch {
	case !credit.Applied:
		logger.Info("Gateway payment already applied", "paymentID", paymentID, "transactionID", tx.ID)
	case credit.Credited > 0:
		warnings = append(warnings, s.rentals.publish(ctx, paymentReceived(tx, credit.Credited))...)
	}
	if credit.Excess > 0 {
		logger.WarnContext(ctx, "Gateway payment exceeds remaining balance", "paymentID", paymentID, "transactionID", tx.ID, "excess", credit.Excess)
		warnings = append(warnings, domain.Warning{
			Effect:  "overpayment",
			Message: fmt.Sprintf("payment %s exceeded the remaining balance by %d", paymentID, credit.Excess),
		})
	}
	logger.ExitMethod("PaymentService.SettlePayment", "requestID", requestID, "transactionID", tx.ID)
	return tx, warnings, nil
}

func (s *paymentService) MarkPaymentFailed(ctx context.Context, transactionID int64) (*domain.RentalTransaction, error) {
	logger.EnterMethod("PaymentService.MarkPaymentFailed", "transactionID", transactionID)

	var tx *domain.RentalTransaction
	err := retryOnConflict(ctx, s.rentals.opts.ConflictRetries, "mark_payment_failed", func(ctx context.Context) error {
		return s.rentals.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			tx, err = repos.Transactions.GetByIDForUpdate(ctx, transactionID)
			if err != nil {
				return err
			}
			if !tx.MarkPaymentFailed() {
				return nil
			}
			return repos.Transactions.Update(ctx, tx)
		})
	})
	if err != nil {
		logger.ExitMethodWithError("PaymentService.MarkPaymentFailed", err, "transactionID", transactionID)
		return nil, err
	}
	logger.ExitMethod("PaymentService.MarkPaymentFailed", "transactionID", transactionID, "paymentStatus", tx.PaymentStatus)
	return tx, nil
}

func (s *paymentService) Checkout(ctx context.Context, transactionID, tenantID int64) (*domain.ChargeToken, error) {
	logger.EnterMethod("PaymentService.Checkout", "transactionID", transactionID)

	tx, err := s.rentals.store.Repos().Transactions.GetByID(ctx, transactionID)
	if err != nil {
		logger.ExitMethodWithError("PaymentService.Checkout", err)
		return nil, err
	}
	if tx.TenantID != tenantID {
		return nil, domain.ErrForbidden.WithMessage("only the tenant can pay for a rental transaction")
	}
	if !tx.Status.IsOpen() {
		return nil, domain.ErrTransactionNotActive
	}
	if tx.RemainingAmount <= 0 {
		return nil, domain.ErrInvalidAmount.WithMessage("rental transaction is fully paid")
	}
	if s.gateway == nil {
		return nil, domain.ErrDependencyFailure.WithMessage("payment gateway is not configured")
	}

	draft := domain.ChargeDraft{
		TransactionID: tx.ID,
		RequestID:     tx.RentalRequestID,
		Title:         fmt.Sprintf("Rental contract #%d", tx.ID),
		Amount:        tx.RemainingAmount,
		Currency:      s.currency,
	}
	logger.ExternalServiceCall("payment_gateway", "CreateChargeToken", "reference", draft.ExternalReference())
	token, err := s.gateway.CreateChargeToken(ctx, draft)
	logger.ExternalServiceResult("payment_gateway", "CreateChargeToken", err)
	if err != nil {
		return nil, domain.ErrDependencyFailure.WithMessage(fmt.Sprintf("payment gateway: %v", err))
	}

	logger.ExitMethod("PaymentService.Checkout", "transactionID", transactionID)
	return token, nil
}

// HandleGatewayNotification looks the payment up at the gateway, which is the
// only trusted source of its status and amount.
func (s *paymentService) HandleGatewayNotification(ctx context.Context, paymentID string) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("PaymentService.HandleGatewayNotification", "paymentID", paymentID)

	if s.gateway == nil {
		return nil, nil, domain.ErrDependencyFailure.WithMessage("payment gateway is not configured")
	}
	logger.ExternalServiceCall("payment_gateway", "VerifyPayment", "paymentID", paymentID)
	v, err := s.gateway.VerifyPayment(ctx, paymentID)
	logger.ExternalServiceResult("payment_gateway", "VerifyPayment", err)
	if err != nil {
		return nil, nil, domain.ErrDependencyFailure.WithMessage(fmt.Sprintf("payment gateway: %v", err))
	}

	requestID, ok := domain.RequestIDFromReference(v.ExternalReference)
	if !ok {
		return nil, nil, domain.ErrInvalidReference.WithMessage(fmt.Sprintf("payment %s has reference %q", paymentID, v.ExternalReference))
	}

	switch v.Status {
	case domain.GatewayPaymentApproved:
		return s.settle(ctx, requestID, v.PaymentID, v.Amount)
	case domain.GatewayPaymentRejected:
		tx, err := s.rentals.store.Repos().Transactions.GetByRequestID(ctx, requestID)
		if errors.Is(err, domain.ErrTransactionNotFound) {
			logger.Info("Rejected payment for unapproved request", "requestID", requestID, "paymentID", paymentID)
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		tx, err = s.MarkPaymentFailed(ctx, tx.ID)
		return tx, nil, err
	default:
		logger.Info("Payment still pending at gateway", "requestID", requestID, "paymentID", paymentID)
		return nil, nil, nil
	}
}

func paymentReceived(tx *domain.RentalTransaction, amount int64) events.PaymentReceived {
	return events.PaymentReceived{
		TransactionID:   tx.ID,
		TenantID:        tx.TenantID,
		Amount:          amount,
		RemainingAmount: tx.RemainingAmount,
		PaymentStatus:   tx.PaymentStatus,
	}
}
