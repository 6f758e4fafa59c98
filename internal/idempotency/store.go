// Package idempotency remembers the outcome of checkout requests by their
// Idempotency-Key so a resubmitted form does not place a second order.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInProgress = errors.New("request with this idempotency key is in progress")

const pendingMarker = "pending"

type Record struct {
	OrderID     string  `json:"order_id"`
	AccessToken *string `json:"access_token,omitempty"`

	// Fingerprint identifies the request that produced the record. A replay
	// must present the same fingerprint to see OrderID and AccessToken.
	Fingerprint string `json:"fingerprint"`
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Begin claims key. It returns nil, nil when the caller now owns the key,
// the stored record when the key already completed, or ErrInProgress.
func (s *RedisStore) Begin(ctx context.Context, key string) (*Record, error) {
	claimed, err := s.client.SetNX(ctx, redisKey(key), pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if claimed {
		return nil, nil
	}

	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if string(data) == pendingMarker {
		return nil, ErrInProgress
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record failed: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record failed: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Release forgets a claimed key so the request can be retried.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return "checkout:idempotency:" + key
}
