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
	"asset-rental-backend/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// finalReminderDays is the second extension reminder, sent a week before
	// the contract ends.
	finalReminderDays = 7
)

type RentalOptions struct {
	// Now defaults to time.Now in UTC.
	Now              func() time.Time
	AllowPastStart   bool
	ConflictRetries  int
	ReminderLeadDays int
}

type rentalService struct {
	store     repository.Store
	publisher events.Publisher
	opts      RentalOptions
}

func NewRentalService(store repository.Store, publisher events.Publisher, opts RentalOptions) RentalService {
	return newRentalService(store, publisher, opts)
}

func newRentalService(store repository.Store, publisher events.Publisher, opts RentalOptions) *rentalService {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.ConflictRetries < 1 {
		opts.ConflictRetries = 3
	}
	if opts.ReminderLeadDays <= 0 {
		opts.ReminderLeadDays = domain.ExtensionWindowDays
	}
	return &rentalService{store: store, publisher: publisher, opts: opts}
}

func (s *rentalService) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *rentalService) today() time.Time {
	return domain.DateOf(s.now())
}

// publish hands e to the side effects. The state change is already committed,
// so failures only come back as warnings.
func (s *rentalService) publish(ctx context.Context, e events.Event) []domain.Warning {
	if s.publisher == nil {
		return nil
	}
	err := s.publisher.Publish(context.WithoutCancel(ctx), e)
	if err != nil {
		logger.WarnContext(ctx, "Side effects degraded after commit", "event", e.Kind(), "error", err)
	}
	return events.Warnings(err)
}

func (s *rentalService) SubmitRequest(ctx context.Context, assetID, requesterID int64, startDate time.Time, durationMonths int) (*domain.RentalRequest, []domain.Warning, error) {
	logger.EnterMethod("RentalService.SubmitRequest", "assetID", assetID, "requesterID", requesterID, "months", durationMonths)

	var req *domain.RentalRequest
	var title string
	err := s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		asset, err := repos.Assets.GetByID(ctx, assetID)
		if err != nil {
			return err
		}
		if asset.Status != domain.AssetStatusAvailable {
			return domain.ErrAssetUnavailable.WithMessage(fmt.Sprintf("asset %d is %s", asset.ID, asset.Status))
		}
		if durationMonths < 1 || durationMonths > domain.MaxDurationMonths {
			return domain.ErrInvalidDuration
		}
		start := domain.DateOf(startDate)
		if !s.opts.AllowPastStart && start.Before(s.today()) {
			return domain.ErrStartDateInPast
		}

		term, err := utils.CalculateRentalTerm(start, durationMonths, asset.MonthlyPrice)
		if err != nil {
			return err
		}
		req = &domain.RentalRequest{
			AssetID:        asset.ID,
			RequesterID:    requesterID,
			StartDate:      term.StartDate,
			DurationMonths: term.Months,
			EndDate:        term.EndDate,
			MonthlyPrice:   term.MonthlyPrice,
			TotalPrice:     term.TotalPrice,
			Status:         domain.RequestStatusPending,
		}
		title = asset.Title
		return repos.Requests.Create(ctx, req)
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.SubmitRequest", err)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.RequestSubmitted{
		RequestID:      req.ID,
		AssetID:        req.AssetID,
		AssetTitle:     title,
		RequesterID:    req.RequesterID,
		StartDate:      req.StartDate,
		DurationMonths: req.DurationMonths,
		TotalPrice:     req.TotalPrice,
	})
	logger.ExitMethod("RentalService.SubmitRequest", "requestID", req.ID)
	return req, warnings, nil
}

func (s *rentalService) ApproveRequest(ctx context.Context, requestID int64, adminNotes string) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("RentalService.ApproveRequest", "requestID", requestID)

	var tx *domain.RentalTransaction
	var approved *events.RequestApproved
	err := retryOnConflict(ctx, s.opts.ConflictRetries, "approve_request", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			tx, approved, err = s.approveInTx(ctx, repos, requestID, adminNotes)
			return err
		})
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.ApproveRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, *approved)
	logger.ExitMethod("RentalService.ApproveRequest", "requestID", requestID, "transactionID", tx.ID)
	return tx, warnings, nil
}

// approveInTx moves a pending request to approved, rents out its asset and
// creates the request's transaction. The caller owns the unit of work.
func (s *rentalService) approveInTx(ctx context.Context, repos repository.Repositories, requestID int64, notes string) (*domain.RentalTransaction, *events.RequestApproved, error) {
	req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if !req.CanTransitionTo(domain.RequestStatusApproved) {
		return nil, nil, domain.ErrRequestNotPending.WithMessage(fmt.Sprintf("rental request %d is %s", req.ID, req.Status))
	}

	asset, err := repos.Assets.GetByIDForUpdate(ctx, req.AssetID)
	if err != nil {
		return nil, nil, err
	}
	if asset.Status != domain.AssetStatusAvailable {
		return nil, nil, domain.ErrAssetUnavailable.WithMessage(fmt.Sprintf("asset %d is %s", asset.ID, asset.Status))
	}

	if err := repos.Requests.UpdateStatus(ctx, req.ID, domain.RequestStatusPending, domain.RequestStatusApproved, notes); err != nil {
		return nil, nil, err
	}
	if err := repos.Assets.UpdateStatus(ctx, asset.ID, domain.AssetStatusAvailable, domain.AssetStatusRented); err != nil {
		return nil, nil, err
	}

	tx, err := repos.Transactions.GetByRequestID(ctx, req.ID)
	switch {
	case err == nil:
		logger.Warn("Reusing existing transaction for request", "requestID", req.ID, "transactionID", tx.ID)
	case errors.Is(err, domain.ErrTransactionNotFound):
		tx = domain.NewTransactionFromRequest(req)
		if err := repos.Transactions.Create(ctx, tx); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	return tx, &events.RequestApproved{
		RequestID:     req.ID,
		TransactionID: tx.ID,
		AssetID:       asset.ID,
		AssetTitle:    asset.Title,
		RequesterID:   req.RequesterID,
	}, nil
}

func (s *rentalService) RejectRequest(ctx context.Context, requestID int64, reason string) (*domain.RentalRequest, []domain.Warning, error) {
	logger.EnterMethod("RentalService.RejectRequest", "requestID", requestID)

	req, err := s.closeRequest(ctx, requestID, domain.RequestStatusRejected, reason, func(*domain.RentalRequest) error { return nil })
	if err != nil {
		logger.ExitMethodWithError("RentalService.RejectRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.RequestRejected{
		RequestID:   req.ID,
		AssetID:     req.AssetID,
		RequesterID: req.RequesterID,
		Reason:      reason,
	})
	logger.ExitMethod("RentalService.RejectRequest", "requestID", requestID)
	return req, warnings, nil
}

func (s *rentalService) CancelRequest(ctx context.Context, requestID, requesterID int64) (*domain.RentalRequest, []domain.Warning, error) {
	logger.EnterMethod("RentalService.CancelRequest", "requestID", requestID, "requesterID", requesterID)

	req, err := s.closeRequest(ctx, requestID, domain.RequestStatusCancelled, "", func(req *domain.RentalRequest) error {
		if req.RequesterID != requesterID {
			return domain.ErrForbidden.WithMessage("only the requester can cancel a rental request")
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.CancelRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.RequestCancelled{
		RequestID:   req.ID,
		AssetID:     req.AssetID,
		RequesterID: req.RequesterID,
	})
	logger.ExitMethod("RentalService.CancelRequest", "requestID", requestID)
	return req, warnings, nil
}

// closeRequest moves a pending request to a terminal status without touching
// its asset. check runs against the locked row before anything is written.
func (s *rentalService) closeRequest(ctx context.Context, requestID int64, next domain.RequestStatus, notes string, check func(*domain.RentalRequest) error) (*domain.RentalRequest, error) {
	var req *domain.RentalRequest
	err := retryOnConflict(ctx, s.opts.ConflictRetries, "close_request", func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			req, err = repos.Requests.GetByIDForUpdate(ctx, requestID)
			if err != nil {
				return err
			}
			if err := check(req); err != nil {
				return err
			}
			if !req.CanTransitionTo(next) {
				return domain.ErrRequestNotPending.WithMessage(fmt.Sprintf("rental request %d is %s", req.ID, req.Status))
			}
			if err := repos.Requests.UpdateStatus(ctx, req.ID, req.Status, next, notes); err != nil {
				return err
			}
			req.Status = next
			if notes != "" {
				req.AdminNotes = notes
			}
			req.UpdatedAt = s.now()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *rentalService) GetRequest(ctx context.Context, requestID int64) (*domain.RentalRequest, error) {
	return s.store.Repos().Requests.GetByID(ctx, requestID)
}

func (s *rentalService) ListMyRequests(ctx context.Context, requesterID int64, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Repos().Requests.ListByRequester(ctx, requesterID, status, page, pageSize)
}

func (s *rentalService) ListRequests(ctx context.Context, status domain.RequestStatus, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Repos().Requests.ListByStatus(ctx, status, page, pageSize)
}

func (s *rentalService) GetTransaction(ctx context.Context, transactionID int64) (*domain.RentalTransaction, error) {
	return s.store.Repos().Transactions.GetByID(ctx, transactionID)
}

func (s *rentalService) ListMyTransactions(ctx context.Context, tenantID int64, page, pageSize int32) ([]domain.RentalTransaction, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.store.Repos().Transactions.ListByTenant(ctx, tenantID, page, pageSize)
}

func normalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// mutateTransaction runs fn against the locked transaction and persists it
// with a version check, retrying the whole unit on conflict.
func (s *rentalService) mutateTransaction(ctx context.Context, op string, transactionID int64, fn func(ctx context.Context, repos repository.Repositories, tx *domain.RentalTransaction) error) (*domain.RentalTransaction, error) {
	var tx *domain.RentalTransaction
	err := retryOnConflict(ctx, s.opts.ConflictRetries, op, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			var err error
			tx, err = repos.Transactions.GetByIDForUpdate(ctx, transactionID)
			if err != nil {
				return err
			}
			if err := fn(ctx, repos, tx); err != nil {
				return err
			}
			return repos.Transactions.Update(ctx, tx)
		})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *rentalService) RequestExtension(ctx context.Context, transactionID, tenantID int64, additionalMonths int, notes string) (*domain.ExtensionRecord, []domain.Warning, error) {
	logger.EnterMethod("RentalService.RequestExtension", "transactionID", transactionID, "months", additionalMonths)

	var rec domain.ExtensionRecord
	tx, err := s.mutateTransaction(ctx, "request_extension", transactionID, func(_ context.Context, _ repository.Repositories, tx *domain.RentalTransaction) error {
		if tx.TenantID != tenantID {
			return domain.ErrForbidden.WithMessage("only the tenant can extend a rental transaction")
		}
		added, err := tx.AppendExtensionRequest(additionalMonths, notes, s.now())
		if err != nil {
			return err
		}
		rec = *added
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.RequestExtension", err, "transactionID", transactionID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.ExtensionRequested{
		TransactionID:    tx.ID,
		TenantID:         tx.TenantID,
		ExtensionID:      rec.ID,
		AdditionalMonths: rec.AdditionalMonths,
		NewEndDate:       rec.NewEndDate,
	})
	logger.ExitMethod("RentalService.RequestExtension", "transactionID", transactionID, "extensionID", rec.ID)
	return &rec, warnings, nil
}

func (s *rentalService) ConfirmExtension(ctx context.Context, transactionID int64, extensionID int) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("RentalService.ConfirmExtension", "transactionID", transactionID, "extensionID", extensionID)

	var rec domain.ExtensionRecord
	tx, err := s.mutateTransaction(ctx, "confirm_extension", transactionID, func(_ context.Context, _ repository.Repositories, tx *domain.RentalTransaction) error {
		applied, err := tx.ApplyExtension(extensionID, s.now())
		if err != nil {
			return err
		}
		rec = *applied
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.ConfirmExtension", err, "transactionID", transactionID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.ExtensionApplied{
		TransactionID:    tx.ID,
		TenantID:         tx.TenantID,
		ExtensionID:      rec.ID,
		AdditionalMonths: rec.AdditionalMonths,
		NewEndDate:       rec.NewEndDate,
		RemainingAmount:  tx.RemainingAmount,
	})
	logger.ExitMethod("RentalService.ConfirmExtension", "transactionID", transactionID, "currentEndDate", tx.CurrentEndDate)
	return tx, warnings, nil
}

func (s *rentalService) DeclineExtension(ctx context.Context, transactionID int64, extensionID int, reason string) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("RentalService.DeclineExtension", "transactionID", transactionID, "extensionID", extensionID)

	tx, err := s.mutateTransaction(ctx, "decline_extension", transactionID, func(_ context.Context, _ repository.Repositories, tx *domain.RentalTransaction) error {
		_, err := tx.DeclineExtension(extensionID, reason, s.now())
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.DeclineExtension", err, "transactionID", transactionID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.ExtensionDeclined{
		TransactionID: tx.ID,
		TenantID:      tx.TenantID,
		ExtensionID:   extensionID,
		Reason:        reason,
	})
	logger.ExitMethod("RentalService.DeclineExtension", "transactionID", transactionID)
	return tx, warnings, nil
}

// closeInTx ends an open contract, completes its request and frees its asset.
// tx is persisted by the caller.
func closeInTx(ctx context.Context, repos repository.Repositories, tx *domain.RentalTransaction, status domain.TransactionStatus, endDate time.Time, reason string) error {
	if err := tx.Close(status, endDate, reason); err != nil {
		return err
	}
	if err := repos.Requests.UpdateStatus(ctx, tx.RentalRequestID, domain.RequestStatusApproved, domain.RequestStatusCompleted, ""); err != nil {
		return err
	}
	return repos.Assets.UpdateStatus(ctx, tx.AssetID, domain.AssetStatusRented, domain.AssetStatusAvailable)
}

func (s *rentalService) EndTransaction(ctx context.Context, transactionID int64, reason string) (*domain.RentalTransaction, []domain.Warning, error) {
	logger.EnterMethod("RentalService.EndTransaction", "transactionID", transactionID)

	tx, err := s.mutateTransaction(ctx, "end_transaction", transactionID, func(ctx context.Context, repos repository.Repositories, tx *domain.RentalTransaction) error {
		return closeInTx(ctx, repos, tx, domain.TransactionStatusCompleted, s.today(), reason)
	})
	if err != nil {
		logger.ExitMethodWithError("RentalService.EndTransaction", err, "transactionID", transactionID)
		return nil, nil, err
	}

	warnings := s.publish(ctx, events.TransactionEnded{
		TransactionID: tx.ID,
		AssetID:       tx.AssetID,
		TenantID:      tx.TenantID,
		EndDate:       tx.CurrentEndDate,
		Reason:        reason,
	})
	logger.ExitMethod("RentalService.EndTransaction", "transactionID", transactionID)
	return tx, warnings, nil
}

// ExpireOverdue completes every open transaction whose current end date has
// passed. Each transaction is its own unit of work; a failure is logged and
// the scan moves on.
func (s *rentalService) ExpireOverdue(ctx context.Context) ([]int64, error) {
	logger.EnterMethod("RentalService.ExpireOverdue")
	today := s.today()

	ids, err := s.store.Repos().Transactions.ListOverdueIDs(ctx, today)
	if err != nil {
		logger.ExitMethodWithError("RentalService.ExpireOverdue", err)
		return nil, err
	}

	expired := make([]int64, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			logger.ExitMethodWithError("RentalService.ExpireOverdue", err, "expired", len(expired))
			return expired, err
		}

		tx, err := s.expireOne(ctx, id, today)
		if err != nil {
			logger.Error("Failed to expire overdue transaction", "transactionID", id, "error", err)
			continue
		}
		if tx == nil {
			continue
		}
		expired = append(expired, id)
		s.publish(ctx, events.TransactionExpired{
			TransactionID: tx.ID,
			AssetID:       tx.AssetID,
			TenantID:      tx.TenantID,
			EndDate:       tx.CurrentEndDate,
		})
	}

	logger.ExitMethod("RentalService.ExpireOverdue", "candidates", len(ids), "expired", len(expired))
	return expired, nil
}

// expireOne returns nil when the transaction stopped being overdue after it
// was listed.
func (s *rentalService) expireOne(ctx context.Context, id int64, today time.Time) (*domain.RentalTransaction, error) {
	var out *domain.RentalTransaction
	err := retryOnConflict(ctx, s.opts.ConflictRetries, "expire_overdue", func(ctx context.Context) error {
		out = nil
		return s.store.WithTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			tx, err := repos.Transactions.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !tx.Status.IsOpen() || !tx.CurrentEndDate.Before(today) {
				return nil
			}
			if err := closeInTx(ctx, repos, tx, domain.TransactionStatusCompleted, tx.CurrentEndDate, "expired"); err != nil {
				return err
			}
			if err := repos.Transactions.Update(ctx, tx); err != nil {
				return err
			}
			out = tx
			return nil
		})
	})
	return out, err
}

// RemindExtensionWindow nudges tenants whose contract ends exactly the lead
// time or one week from today and who may still extend.
func (s *rentalService) RemindExtensionWindow(ctx context.Context) (int, error) {
	logger.EnterMethod("RentalService.RemindExtensionWindow")
	today := s.today()

	offsets := []int{s.opts.ReminderLeadDays}
	if s.opts.ReminderLeadDays != finalReminderDays {
		offsets = append(offsets, finalReminderDays)
	}

	sent := 0
	for _, days := range offsets {
		day := today.AddDate(0, 0, days)
		txs, err := s.store.Repos().Transactions.ListEndingBetween(ctx, day, day)
		if err != nil {
			logger.ExitMethodWithError("RentalService.RemindExtensionWindow", err)
			return sent, err
		}
		for i := range txs {
			tx := &txs[i]
			if !tx.CanExtend(today) || tx.PendingExtension() != nil {
				continue
			}
			s.publish(ctx, events.ExtensionWindowOpen{
				TransactionID:  tx.ID,
				TenantID:       tx.TenantID,
				CurrentEndDate: tx.CurrentEndDate,
				DaysRemaining:  tx.DaysRemaining(today),
			})
			sent++
		}
	}

	logger.ExitMethod("RentalService.RemindExtensionWindow", "sent", sent)
	return sent, nil
}
