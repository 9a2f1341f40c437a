package service

import (
	"context"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository"
)

type reportService struct {
	reports      repository.ReportRepository
	transactions repository.RentalTransactionRepository
	now          func() time.Time
}

// NewReportService builds the read-only reporting surface. now may be nil.
func NewReportService(reports repository.ReportRepository, transactions repository.RentalTransactionRepository, now func() time.Time) ReportService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &reportService{reports: reports, transactions: transactions, now: now}
}

func (s *reportService) AssetCounts(ctx context.Context) ([]domain.StatusCount, error) {
	return s.reports.AssetStatusCounts(ctx)
}

func (s *reportService) RequestCounts(ctx context.Context) ([]domain.StatusCount, error) {
	return s.reports.RequestStatusCounts(ctx)
}

func (s *reportService) Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueSummary, error) {
	if to.Before(from) {
		return nil, domain.ErrInvalidRange.WithMessage("range end is before its start")
	}
	return s.reports.Revenue(ctx, from, to)
}

// Occupancy is rented over rentable assets; maintenance assets are not rentable.
func (s *reportService) Occupancy(ctx context.Context) (*domain.Occupancy, error) {
	counts, err := s.reports.AssetStatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := &domain.Occupancy{}
	for _, c := range counts {
		switch domain.AssetStatus(c.Status) {
		case domain.AssetStatusMaintenance:
			continue
		case domain.AssetStatusRented:
			out.RentedAssets += c.Count
		}
		out.RentableAssets += c.Count
	}
	if out.RentableAssets > 0 {
		out.Rate = float64(out.RentedAssets) / float64(out.RentableAssets)
	}
	return out, nil
}

// MonthlyRevenue always returns twelve months, zero-filled.
func (s *reportService) MonthlyRevenue(ctx context.Context, year int) ([]domain.MonthlyRevenue, error) {
	if year < 2000 || year > 9999 {
		return nil, domain.ErrInvalidRange.WithMessage("year out of range")
	}
	rows, err := s.reports.MonthlyRevenue(ctx, year)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MonthlyRevenue, 12)
	for i := range out {
		out[i].Month = i + 1
	}
	for _, r := range rows {
		if r.Month >= 1 && r.Month <= 12 {
			out[r.Month-1].PaidAmount = r.PaidAmount
		}
	}
	return out, nil
}

func (s *reportService) ExpiringSoon(ctx context.Context, days int) ([]domain.RentalTransaction, error) {
	if days < 0 || days > 366 {
		return nil, domain.ErrInvalidRange.WithMessage("days must be between 0 and 366")
	}
	today := domain.DateOf(s.now())
	return s.transactions.ListEndingBetween(ctx, today, today.AddDate(0, 0, days))
}
