package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"asset-rental-backend/internal/domain"
)

type assetRepository struct{ v *view }

func (r *assetRepository) Create(_ context.Context, a *domain.Asset) error {
	return r.v.do(func(s *state) error {
		now := r.v.now()
		a.ID = s.next("assets")
		if a.Status == "" {
			a.Status = domain.AssetStatusAvailable
		}
		a.CreatedAt, a.UpdatedAt = now, now
		s.assets[a.ID] = *a
		return nil
	})
}

func (r *assetRepository) GetByID(_ context.Context, id int64) (*domain.Asset, error) {
	var out *domain.Asset
	err := r.v.do(func(s *state) error {
		a, ok := s.assets[id]
		if !ok {
			return domain.ErrAssetNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *assetRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Asset, error) {
	return r.GetByID(ctx, id)
}

func (r *assetRepository) Update(_ context.Context, a *domain.Asset) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.assets[a.ID]
		if !ok {
			return domain.ErrAssetNotFound
		}
		a.Status = cur.Status
		a.CreatedAt = cur.CreatedAt
		a.UpdatedAt = r.v.now()
		s.assets[a.ID] = *a
		return nil
	})
}

func (r *assetRepository) UpdateStatus(_ context.Context, id int64, expected, next domain.AssetStatus) error {
	return r.v.do(func(s *state) error {
		a, ok := s.assets[id]
		if !ok {
			return domain.ErrAssetNotFound
		}
		if a.Status != expected {
			return domain.ErrConflict.WithMessage(fmt.Sprintf("asset %d is no longer %s", id, expected))
		}
		a.Status = next
		a.UpdatedAt = r.v.now()
		s.assets[id] = a
		return nil
	})
}

func (r *assetRepository) Delete(_ context.Context, id int64) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.assets[id]; !ok {
			return domain.ErrAssetNotFound
		}
		for _, req := range s.requests {
			if req.AssetID == id {
				return domain.ErrAssetInUse
			}
		}
		delete(s.assets, id)
		for k := range s.favorites {
			if k.assetID == id {
				delete(s.favorites, k)
			}
		}
		return nil
	})
}

func (r *assetRepository) List(_ context.Context, f domain.AssetFilter) ([]domain.Asset, int32, error) {
	var matched []domain.Asset
	err := r.v.do(func(s *state) error {
		for _, id := range sortedIDs(s.assets) {
			a := s.assets[id]
			if f.Status != "" && a.Status != f.Status {
				continue
			}
			if f.Type != "" && a.Type != f.Type {
				continue
			}
			if f.City != "" && !strings.EqualFold(a.City, f.City) {
				continue
			}
			if f.MaxPrice > 0 && a.MonthlyPrice > f.MaxPrice {
				continue
			}
			matched = append(matched, a)
		}
		return nil
	})
	return page(matched, f.Page, f.PageSize), int32(len(matched)), err
}

func (r *assetRepository) HasRentalHistory(_ context.Context, id int64) (bool, error) {
	var found bool
	err := r.v.do(func(s *state) error {
		for _, req := range s.requests {
			if req.AssetID == id {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

type rentalRequestRepository struct{ v *view }

func (r *rentalRequestRepository) Create(_ context.Context, req *domain.RentalRequest) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.assets[req.AssetID]; !ok {
			return domain.ErrAssetNotFound
		}
		now := r.v.now()
		req.ID = s.next("rental_requests")
		req.CreatedAt, req.UpdatedAt = now, now
		s.requests[req.ID] = *req
		return nil
	})
}

func (r *rentalRequestRepository) GetByID(_ context.Context, id int64) (*domain.RentalRequest, error) {
	var out *domain.RentalRequest
	err := r.v.do(func(s *state) error {
		req, ok := s.requests[id]
		if !ok {
			return domain.ErrRequestNotFound
		}
		out = &req
		return nil
	})
	return out, err
}

func (r *rentalRequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *rentalRequestRepository) UpdateStatus(_ context.Context, id int64, expected, next domain.RequestStatus, notes string) error {
	return r.v.do(func(s *state) error {
		req, ok := s.requests[id]
		if !ok {
			return domain.ErrRequestNotFound
		}
		if req.Status != expected {
			return domain.ErrConflict.WithMessage(fmt.Sprintf("rental request %d is no longer %s", id, expected))
		}
		req.Status = next
		if notes != "" {
			req.AdminNotes = notes
		}
		req.UpdatedAt = r.v.now()
		s.requests[id] = req
		return nil
	})
}

func (r *rentalRequestRepository) ListByRequester(_ context.Context, requesterID int64, status domain.RequestStatus, p, size int32) ([]domain.RentalRequest, int32, error) {
	return r.list(func(req domain.RentalRequest) bool {
		return req.RequesterID == requesterID && (status == "" || req.Status == status)
	}, p, size)
}

func (r *rentalRequestRepository) ListByStatus(_ context.Context, status domain.RequestStatus, p, size int32) ([]domain.RentalRequest, int32, error) {
	return r.list(func(req domain.RentalRequest) bool {
		return status == "" || req.Status == status
	}, p, size)
}

func (r *rentalRequestRepository) list(keep func(domain.RentalRequest) bool, p, size int32) ([]domain.RentalRequest, int32, error) {
	var matched []domain.RentalRequest
	err := r.v.do(func(s *state) error {
		ids := sortedIDs(s.requests)
		for i := len(ids) - 1; i >= 0; i-- {
			if req := s.requests[ids[i]]; keep(req) {
				matched = append(matched, req)
			}
		}
		return nil
	})
	return page(matched, p, size), int32(len(matched)), err
}

type rentalTransactionRepository struct{ v *view }

func (r *rentalTransactionRepository) Create(_ context.Context, t *domain.RentalTransaction) error {
	return r.v.do(func(s *state) error {
		for _, existing := range s.transactions {
			if existing.RentalRequestID == t.RentalRequestID {
				return domain.ErrConflict.WithMessage(fmt.Sprintf("rental request %d already has a transaction", t.RentalRequestID))
			}
			if existing.AssetID == t.AssetID && existing.Status.IsOpen() && t.Status.IsOpen() {
				return domain.ErrConflict.WithMessage(fmt.Sprintf("asset %d already has an open transaction", t.AssetID))
			}
		}
		now := r.v.now()
		t.ID = s.next("rental_transactions")
		if t.Version == 0 {
			t.Version = 1
		}
		t.CreatedAt, t.UpdatedAt = now, now
		s.transactions[t.ID] = copyTransaction(*t)
		return nil
	})
}

func (r *rentalTransactionRepository) GetByID(_ context.Context, id int64) (*domain.RentalTransaction, error) {
	var out *domain.RentalTransaction
	err := r.v.do(func(s *state) error {
		t, ok := s.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		c := copyTransaction(t)
		out = &c
		return nil
	})
	return out, err
}

func (r *rentalTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RentalTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *rentalTransactionRepository) GetByRequestID(_ context.Context, requestID int64) (*domain.RentalTransaction, error) {
	var out *domain.RentalTransaction
	err := r.v.do(func(s *state) error {
		for _, t := range s.transactions {
			if t.RentalRequestID == requestID {
				c := copyTransaction(t)
				out = &c
				return nil
			}
		}
		return domain.ErrTransactionNotFound
	})
	return out, err
}

func (r *rentalTransactionRepository) Update(_ context.Context, t *domain.RentalTransaction) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.transactions[t.ID]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		if cur.Version != t.Version {
			return domain.ErrConflict.WithMessage(fmt.Sprintf("rental transaction %d changed concurrently", t.ID))
		}
		t.Version++
		t.UpdatedAt = r.v.now()
		s.transactions[t.ID] = copyTransaction(*t)
		return nil
	})
}

func (r *rentalTransactionRepository) ListByTenant(_ context.Context, tenantID int64, p, size int32) ([]domain.RentalTransaction, int32, error) {
	var matched []domain.RentalTransaction
	err := r.v.do(func(s *state) error {
		ids := sortedIDs(s.transactions)
		for i := len(ids) - 1; i >= 0; i-- {
			if t := s.transactions[ids[i]]; t.TenantID == tenantID {
				matched = append(matched, copyTransaction(t))
			}
		}
		return nil
	})
	return page(matched, p, size), int32(len(matched)), err
}

func (r *rentalTransactionRepository) ListOverdueIDs(_ context.Context, today time.Time) ([]int64, error) {
	var ids []int64
	day := domain.DateOf(today)
	err := r.v.do(func(s *state) error {
		for _, id := range sortedIDs(s.transactions) {
			t := s.transactions[id]
			if t.Status.IsOpen() && t.CurrentEndDate.Before(day) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

func (r *rentalTransactionRepository) ListEndingBetween(_ context.Context, from, to time.Time) ([]domain.RentalTransaction, error) {
	var out []domain.RentalTransaction
	lo, hi := domain.DateOf(from), domain.DateOf(to)
	err := r.v.do(func(s *state) error {
		for _, id := range sortedIDs(s.transactions) {
			t := s.transactions[id]
			if t.Status.IsOpen() && !t.CurrentEndDate.Before(lo) && !t.CurrentEndDate.After(hi) {
				out = append(out, copyTransaction(t))
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CurrentEndDate.Before(out[j].CurrentEndDate) })
	return out, err
}

func (r *rentalTransactionRepository) CountOpenByAsset(_ context.Context, assetID int64) (int, error) {
	var n int
	err := r.v.do(func(s *state) error {
		for _, t := range s.transactions {
			if t.AssetID == assetID && t.Status.IsOpen() {
				n++
			}
		}
		return nil
	})
	return n, err
}

type notificationRepository struct{ v *view }

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	return r.v.do(func(s *state) error {
		n.ID = s.next("notifications")
		n.CreatedAt = r.v.now()
		s.notifications[n.ID] = *n
		return nil
	})
}

func (r *notificationRepository) ListForUser(_ context.Context, userID int64, limit, offset int32) ([]domain.Notification, int32, error) {
	return r.list(func(n domain.Notification) bool {
		return n.Audience == domain.AudienceUser && n.UserID != nil && *n.UserID == userID
	}, limit, offset)
}

func (r *notificationRepository) ListForAdmin(_ context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	return r.list(func(n domain.Notification) bool { return n.Audience == domain.AudienceAdmin }, limit, offset)
}

func (r *notificationRepository) list(keep func(domain.Notification) bool, limit, offset int32) ([]domain.Notification, int32, error) {
	var matched []domain.Notification
	err := r.v.do(func(s *state) error {
		ids := sortedIDs(s.notifications)
		for i := len(ids) - 1; i >= 0; i-- {
			if n := s.notifications[ids[i]]; keep(n) {
				matched = append(matched, n)
			}
		}
		return nil
	})
	total := int32(len(matched))
	if limit <= 0 {
		limit = 20
	}
	if int(offset) >= len(matched) {
		return nil, total, err
	}
	end := int(offset + limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, err
}

func (r *notificationRepository) MarkAsRead(_ context.Context, id int64, audience domain.Audience, userID int64) error {
	return r.v.do(func(s *state) error {
		n, ok := s.notifications[id]
		if !ok || n.Audience != audience {
			return domain.ErrNotificationNotFound
		}
		if audience == domain.AudienceUser && (n.UserID == nil || *n.UserID != userID) {
			return domain.ErrNotificationNotFound
		}
		n.IsRead = true
		s.notifications[id] = n
		return nil
	})
}

func (r *notificationRepository) CountUnread(_ context.Context, audience domain.Audience, userID int64) (int64, error) {
	var count int64
	err := r.v.do(func(s *state) error {
		for _, n := range s.notifications {
			if n.IsRead || n.Audience != audience {
				continue
			}
			if audience == domain.AudienceUser && (n.UserID == nil || *n.UserID != userID) {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

type favoriteRepository struct{ v *view }

func (r *favoriteRepository) Add(_ context.Context, userID, assetID int64) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.assets[assetID]; !ok {
			return domain.ErrAssetNotFound
		}
		k := favoriteKey{userID: userID, assetID: assetID}
		if _, ok := s.favorites[k]; !ok {
			s.favorites[k] = r.v.now()
		}
		return nil
	})
}

func (r *favoriteRepository) Remove(_ context.Context, userID, assetID int64) error {
	return r.v.do(func(s *state) error {
		k := favoriteKey{userID: userID, assetID: assetID}
		if _, ok := s.favorites[k]; !ok {
			return domain.ErrFavoriteNotFound
		}
		delete(s.favorites, k)
		return nil
	})
}

func (r *favoriteRepository) ListByUser(_ context.Context, userID int64) ([]domain.Favorite, error) {
	var out []domain.Favorite
	err := r.v.do(func(s *state) error {
		for k, at := range s.favorites {
			if k.userID == userID {
				out = append(out, domain.Favorite{UserID: k.userID, AssetID: k.assetID, CreatedAt: at})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, err
}

func (r *favoriteRepository) RemoveAllForAsset(_ context.Context, assetID int64) ([]int64, error) {
	var users []int64
	err := r.v.do(func(s *state) error {
		for k := range s.favorites {
			if k.assetID == assetID {
				users = append(users, k.userID)
				delete(s.favorites, k)
			}
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, err
}
