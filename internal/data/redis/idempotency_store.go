package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
)

const (
	keyPrefix    = "idempotency:"
	pendingValue = "pending"

	// DefaultPendingTTL bounds how long a crashed request can hold a key
	DefaultPendingTTL = 30 * time.Second
)

// IdempotencyStore implements idempotency.Store on Redis. A key is claimed
// with SETNX and later overwritten with the ids the request produced.
type IdempotencyStore struct {
	client     redis.Cmdable
	logger     *slog.Logger
	ttl        time.Duration
	pendingTTL time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose completed keys expire after ttl
func NewIdempotencyStore(logger *slog.Logger, client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client:     client,
		logger:     logger,
		ttl:        ttl,
		pendingTTL: DefaultPendingTTL,
	}
}

func (s *IdempotencyStore) makeKey(key string) string {
	return keyPrefix + key
}

// Reserve claims key for the caller, or reports the ids of an earlier
// completed request
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) ([]uuid.UUID, bool, error) {
	redisKey := s.makeKey(key)

	reserved, err := s.client.SetNX(ctx, redisKey, pendingValue, s.pendingTTL).Result()
	if err != nil {
		s.logger.Error("Failed to reserve idempotency key", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if reserved {
		return nil, true, nil
	}

	val, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return nil, false, idempotency.ErrInProgress
	}
	if err != nil {
		s.logger.Error("Failed to read idempotency key", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == pendingValue {
		return nil, false, idempotency.ErrInProgress
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(val), &ids); err != nil {
		return nil, false, fmt.Errorf("failed to decode idempotency entry: %w", err)
	}
	return ids, false, nil
}

// Complete stores the ids produced under key
func (s *IdempotencyStore) Complete(ctx context.Context, key string, ids []uuid.UUID) error {
	value, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency entry: %w", err)
	}

	if err := s.client.Set(ctx, s.makeKey(key), string(value), s.ttl).Err(); err != nil {
		s.logger.Error("Failed to complete idempotency key", "key", key, "error", err)
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release frees a key whose request failed so the client may retry it
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.makeKey(key)).Err(); err != nil {
		s.logger.Error("Failed to release idempotency key", "key", key, "error", err)
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
