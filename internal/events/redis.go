package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-rental-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue persists events on a Redis list so they survive restarts.
// Producers LPUSH, the consumer loop BRPOPs. Follow-up events are pushed as
// envelopes of their own, so each one is retried separately. Envelopes that
// exhaust their retries are moved to "<key>:dead".
type RedisQueue struct {
	client     *redis.Client
	key        string
	handler    Handler
	maxRetries int
	retryDelay time.Duration
	pollWait   time.Duration
}

func NewRedisQueue(client *redis.Client, key string, h Handler, maxRetries int, retryDelay time.Duration) *RedisQueue {
	return &RedisQueue{
		client:     client,
		key:        key,
		handler:    h,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		pollWait:   time.Second,
	}
}

func (q *RedisQueue) DeadLetterKey() string {
	return q.key + ":dead"
}

func (q *RedisQueue) Publish(ctx context.Context, e Event) error {
	env, err := NewEnvelope(e)
	if err != nil {
		return err
	}
	return q.push(ctx, q.key, env)
}

func (q *RedisQueue) push(ctx context.Context, key string, env Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("push event %s: %w", env.ID, err)
	}
	return nil
}

// pushFollowUps enqueues every follow-up in a single LPUSH.
func (q *RedisQueue) pushFollowUps(ctx context.Context, parent Envelope, followUps []Event) error {
	if len(followUps) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(followUps))
	for _, e := range followUps {
		env, err := NewEnvelope(e)
		if err != nil {
			return err
		}
		data, err := env.Marshal()
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := q.client.LPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("push follow-ups of event %s: %w", parent.ID, err)
	}
	return nil
}

// Run consumes until ctx is cancelled.
func (q *RedisQueue) Run(ctx context.Context) {
	logger.Info("Redis event consumer started", "key", q.key)
	for {
		if ctx.Err() != nil {
			logger.Info("Redis event consumer stopped", "key", q.key)
			return
		}
		if _, err := q.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Redis event consumer error", "key", q.key, "error", err)
			time.Sleep(q.retryDelay)
		}
	}
}

// ProcessNext handles at most one envelope. It reports false when the list
// stayed empty for the poll interval.
func (q *RedisQueue) ProcessNext(ctx context.Context) (bool, error) {
	res, err := q.client.BRPop(ctx, q.pollWait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pop event: %w", err)
	}

	env, err := UnmarshalEnvelope([]byte(res[1]))
	if err != nil {
		logger.Error("Dropping undecodable event", "error", err)
		return true, nil
	}
	e, err := env.Event()
	if err != nil {
		return true, q.push(ctx, q.DeadLetterKey(), env)
	}

	followUps, err := q.handler.Handle(ctx, e)
	if err == nil {
		return true, q.pushFollowUps(ctx, env, followUps)
	}

	env.Attempt++
	if env.Attempt > q.maxRetries {
		logger.Error("Event handling failed, moving to dead letter list", "id", env.ID, "kind", env.Kind, "attempts", env.Attempt, "error", err)
		return true, q.push(ctx, q.DeadLetterKey(), env)
	}
	logger.Warn("Event handling failed, requeueing", "id", env.ID, "kind", env.Kind, "attempt", env.Attempt, "error", err)
	data, mErr := env.Marshal()
	if mErr != nil {
		return true, mErr
	}
	// RPUSH puts it back at the consumer end of the list
	if pushErr := q.client.RPush(ctx, q.key, data).Err(); pushErr != nil {
		return true, fmt.Errorf("requeue event %s: %w", env.ID, pushErr)
	}
	return true, nil
}
