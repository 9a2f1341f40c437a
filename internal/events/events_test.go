package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"asset-rental-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInline_HandlerErrorsBecomeWarnings(t *testing.T) {
	h := HandlerFunc(func(ctx context.Context, e Event) ([]Event, error) {
		return nil, errors.Join(
			&EffectError{Effect: "favorites", Err: errors.New("db down")},
			&EffectError{Effect: "notify_user", Err: domain.ErrDependencyFailure},
		)
	})

	err := NewInline(h).Publish(context.Background(), RequestApproved{RequestID: 1})
	warnings := Warnings(err)
	require.Len(t, warnings, 2)
	assert.Equal(t, domain.Warning{Effect: "favorites", Message: "db down"}, warnings[0])
	assert.Equal(t, "notify_user", warnings[1].Effect)

	assert.Nil(t, Warnings(nil))
	assert.Equal(t, []domain.Warning{{Effect: "publish", Message: "event queue is full"}}, Warnings(ErrQueueFull))
}

// fanOut plans two notices for a RequestApproved and fails the first delivery
// to user 7 once.
func fanOut(calls map[int64]int, mu *sync.Mutex) HandlerFunc {
	return func(ctx context.Context, e Event) ([]Event, error) {
		switch ev := e.(type) {
		case RequestApproved:
			return []Event{
				NotificationDue{Audience: domain.AudienceUser, UserID: 7},
				NotificationDue{Audience: domain.AudienceUser, UserID: ev.RequesterID},
			}, nil
		case NotificationDue:
			mu.Lock()
			defer mu.Unlock()
			calls[ev.UserID]++
			if ev.UserID == 7 && calls[ev.UserID] == 1 {
				return nil, &EffectError{Effect: "notify_user", Err: errors.New("push provider down")}
			}
		}
		return nil, nil
	}
}

func TestInline_FollowUpsRunIndependently(t *testing.T) {
	var mu sync.Mutex
	calls := map[int64]int{}

	err := NewInline(fanOut(calls, &mu)).Publish(context.Background(), RequestApproved{RequestID: 1, RequesterID: 5})
	warnings := Warnings(err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "notify_user", warnings[0].Effect)
	assert.Equal(t, map[int64]int{7: 1, 5: 1}, calls)
}

func TestEnvelope_DecodesValueTypes(t *testing.T) {
	end := time.Date(2025, 9, 28, 0, 0, 0, 0, time.UTC)
	env, err := NewEnvelope(ExtensionApplied{TransactionID: 8, TenantID: 9, ExtensionID: 1, AdditionalMonths: 3, NewEndDate: end})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)

	data, err := env.Marshal()
	require.NoError(t, err)
	decoded, err := UnmarshalEnvelope(data)
	require.NoError(t, err)

	e, err := decoded.Event()
	require.NoError(t, err)
	applied, ok := e.(ExtensionApplied)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, end, applied.NewEndDate)

	_, err = Envelope{Kind: "nope"}.Event()
	assert.ErrorContains(t, err, "unknown event kind")
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	h := HandlerFunc(func(ctx context.Context, e Event) ([]Event, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("transient")
		}
		close(done)
		return nil, nil
	})

	q := NewQueue(h, 1, 4, 3, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	require.NoError(t, q.Publish(ctx, TransactionExpired{TransactionID: 4}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_RetriesOnlyTheFailedFollowUp(t *testing.T) {
	var mu sync.Mutex
	calls := map[int64]int{}

	q := NewQueue(fanOut(calls, &mu), 1, 4, 3, time.Millisecond)
	q.Start(context.Background())
	require.NoError(t, q.Publish(context.Background(), RequestApproved{RequestID: 1, RequesterID: 5}))
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[int64]int{7: 2, 5: 1}, calls)
}

func TestQueue_FullAndClose(t *testing.T) {
	var mu sync.Mutex
	var seen []Kind
	h := HandlerFunc(func(ctx context.Context, e Event) ([]Event, error) {
		mu.Lock()
		seen = append(seen, e.Kind())
		mu.Unlock()
		return nil, nil
	})

	q := NewQueue(h, 1, 1, 0, time.Millisecond)
	require.NoError(t, q.Publish(context.Background(), RequestSubmitted{RequestID: 1}))
	assert.ErrorIs(t, q.Publish(context.Background(), RequestSubmitted{RequestID: 2}), ErrQueueFull)

	q.Start(context.Background())
	q.Close()
	assert.Equal(t, []Kind{KindRequestSubmitted}, seen)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisQueue_Delivers(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	var got Event
	q := NewRedisQueue(rdb, "rental:events", HandlerFunc(func(ctx context.Context, e Event) ([]Event, error) {
		got = e
		return nil, nil
	}), 2, time.Millisecond)

	require.NoError(t, q.Publish(ctx, RequestRejected{RequestID: 3, RequesterID: 9, Reason: "incomplete documents"}))
	handled, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, RequestRejected{RequestID: 3, RequesterID: 9, Reason: "incomplete documents"}, got)

	n, err := rdb.LLen(ctx, "rental:events").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisQueue_DeadLetter(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	q := NewRedisQueue(rdb, "rental:events", HandlerFunc(func(ctx context.Context, e Event) ([]Event, error) {
		return nil, errors.New("push provider down")
	}), 1, time.Millisecond)

	require.NoError(t, q.Publish(ctx, PaymentReceived{TransactionID: 8, Amount: 100}))

	// first failure requeues, second exceeds maxRetries
	for i := 0; i < 2; i++ {
		handled, err := q.ProcessNext(ctx)
		require.NoError(t, err)
		require.True(t, handled)
	}

	live, _ := rdb.LLen(ctx, "rental:events").Result()
	dead, _ := rdb.LLen(ctx, q.DeadLetterKey()).Result()
	assert.Zero(t, live)
	assert.Equal(t, int64(1), dead)

	raw, err := rdb.LIndex(ctx, q.DeadLetterKey(), 0).Result()
	require.NoError(t, err)
	env, err := UnmarshalEnvelope([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 2, env.Attempt)
}

func TestRedisQueue_FollowUpsAreSeparateEnvelopes(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	var mu sync.Mutex
	calls := map[int64]int{}
	q := NewRedisQueue(rdb, "rental:events", fanOut(calls, &mu), 3, time.Millisecond)

	require.NoError(t, q.Publish(ctx, RequestApproved{RequestID: 1, RequesterID: 5}))
	for {
		handled, err := q.ProcessNext(ctx)
		require.NoError(t, err)
		if !handled {
			break
		}
	}

	assert.Equal(t, map[int64]int{7: 2, 5: 1}, calls)
	dead, _ := rdb.LLen(ctx, q.DeadLetterKey()).Result()
	assert.Zero(t, dead)
}
