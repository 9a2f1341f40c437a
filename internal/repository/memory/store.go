// Package memory is an in-process entity store. A single mutex serializes
// every unit of work, so WithTx is trivially serializable; a failed unit is
// rolled back by restoring a snapshot taken when it started.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/repository"
)

type state struct {
	assets        map[int64]domain.Asset
	requests      map[int64]domain.RentalRequest
	transactions  map[int64]domain.RentalTransaction
	notifications map[int64]domain.Notification
	favorites     map[favoriteKey]time.Time
	seq           map[string]int64
}

type favoriteKey struct {
	userID  int64
	assetID int64
}

func newState() *state {
	return &state{
		assets:        map[int64]domain.Asset{},
		requests:      map[int64]domain.RentalRequest{},
		transactions:  map[int64]domain.RentalTransaction{},
		notifications: map[int64]domain.Notification{},
		favorites:     map[favoriteKey]time.Time{},
		seq:           map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.assets {
		c.assets[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = copyTransaction(v)
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.favorites {
		c.favorites[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func copyTransaction(t domain.RentalTransaction) domain.RentalTransaction {
	t.ExtensionHistory = slices.Clone(t.ExtensionHistory)
	t.PaymentRefs = slices.Clone(t.PaymentRefs)
	if t.ExtensionHistory == nil {
		t.ExtensionHistory = []domain.ExtensionRecord{}
	}
	return t
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// Repos returns auto-committing repositories; each call takes the store lock.
func (s *Store) Repos() repository.Repositories {
	return s.bind(false)
}

func (s *Store) WithTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(ctx, s.bind(true)); err != nil {
		s.state = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) Reports() repository.ReportRepository {
	return &reportRepository{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) bind(held bool) repository.Repositories {
	v := &view{store: s, held: held}
	return repository.Repositories{
		Assets:        &assetRepository{v},
		Requests:      &rentalRequestRepository{v},
		Transactions:  &rentalTransactionRepository{v},
		Notifications: &notificationRepository{v},
		Favorites:     &favoriteRepository{v},
	}
}

// view runs a repository call against the live state, taking the store lock
// unless an enclosing WithTx already holds it.
type view struct {
	store *Store
	held  bool
}

func (v *view) do(fn func(s *state) error) error {
	if !v.held {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.state)
}

func (v *view) now() time.Time {
	return v.store.now()
}

func page[T any](items []T, page, pageSize int32) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := int((page - 1) * pageSize)
	if start >= len(items) {
		return nil
	}
	end := start + int(pageSize)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
