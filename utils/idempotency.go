package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const IdempotencyPrefix = "idem:"

// ErrIdempotencyMiss is returned when no record exists for a key.
var ErrIdempotencyMiss = errors.New("idempotency record not found")

// IdempotencyRecord is a completed response replayed for a repeated key.
// A record with Status 0 marks a request still in flight.
type IdempotencyRecord struct {
	Status      int       `json:"status"`
	Body        []byte    `json:"body"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RedisIdempotencyStore keeps idempotency records in Redis.
type RedisIdempotencyStore struct {
	Client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{Client: client}
}

// Reserve claims key for a new request. It reports false when the key is
// already claimed or completed.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(IdempotencyRecord{Fingerprint: fingerprint, CreatedAt: time.Now()})
	if err != nil {
		return false, fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	ok, err := s.Client.SetNX(ctx, IdempotencyPrefix+key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Get returns the stored record for key.
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	data, err := s.Client.Get(ctx, IdempotencyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrIdempotencyMiss
	}
	if err != nil {
		return nil, err
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &rec, nil
}

// Complete stores the final response under key.
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	if err := s.Client.Set(ctx, IdempotencyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}
	return nil
}

// Release drops a claim so the request can be retried.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.Client.Del(ctx, IdempotencyPrefix+key).Err()
}
