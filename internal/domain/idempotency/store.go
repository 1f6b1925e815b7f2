// Package idempotency guards create operations against client retries
package idempotency

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInProgress means another request holding the same key has not finished
var ErrInProgress = errors.New("request with this idempotency key is still in progress")

// Store remembers which resources a key produced
type Store interface {
	// Reserve claims key. When the key already completed, the stored ids are
	// returned with reserved=false.
	Reserve(ctx context.Context, key string) (ids []uuid.UUID, reserved bool, err error)
	Complete(ctx context.Context, key string, ids []uuid.UUID) error
	Release(ctx context.Context, key string) error
}
