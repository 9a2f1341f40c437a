package memory

import (
	"context"
	"sort"
	"time"

	"asset-rental-backend/internal/domain"
)

type reportRepository struct {
	store *Store
}

func (r *reportRepository) read(fn func(s *state)) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	fn(r.store.state)
}

func (r *reportRepository) AssetStatusCounts(_ context.Context) ([]domain.StatusCount, error) {
	counts := map[string]int64{}
	r.read(func(s *state) {
		for _, a := range s.assets {
			counts[string(a.Status)]++
		}
	})
	return toStatusCounts(counts), nil
}

func (r *reportRepository) RequestStatusCounts(_ context.Context) ([]domain.StatusCount, error) {
	counts := map[string]int64{}
	r.read(func(s *state) {
		for _, req := range s.requests {
			counts[string(req.Status)]++
		}
	})
	return toStatusCounts(counts), nil
}

func (r *reportRepository) Revenue(_ context.Context, from, to time.Time) (*domain.RevenueSummary, error) {
	lo, hi := domain.DateOf(from), domain.DateOf(to)
	summary := &domain.RevenueSummary{From: lo, To: hi}
	r.read(func(s *state) {
		for _, t := range s.transactions {
			if t.StartDate.Before(lo) || t.StartDate.After(hi) {
				continue
			}
			summary.Transactions++
			summary.ContractedAmount += t.ContractValue()
			summary.PaidAmount += t.PaidAmount
			summary.RemainingAmount += t.RemainingAmount
		}
	})
	return summary, nil
}

func (r *reportRepository) MonthlyRevenue(_ context.Context, year int) ([]domain.MonthlyRevenue, error) {
	byMonth := map[int]int64{}
	r.read(func(s *state) {
		for _, t := range s.transactions {
			if t.StartDate.Year() == year {
				byMonth[int(t.StartDate.Month())] += t.PaidAmount
			}
		}
	})
	out := make([]domain.MonthlyRevenue, 0, len(byMonth))
	for m, paid := range byMonth {
		out = append(out, domain.MonthlyRevenue{Month: m, PaidAmount: paid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func toStatusCounts(counts map[string]int64) []domain.StatusCount {
	out := make([]domain.StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, domain.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
