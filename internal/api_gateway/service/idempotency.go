package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
)

// Scopes keep the keys of one operation apart from the others
const (
	scopeCreateExpense    = "expense"
	scopeRecordSettlement = "settlement"
)

// scopedKey namespaces a client key by operation and caller so that a key can
// only ever replay the caller's own earlier request.
func scopedKey(scope string, userID uuid.UUID, key string) string {
	return scope + ":" + userID.String() + ":" + key
}

// runIdempotent runs fn at most once per key within scope for userID. fn
// returns the ids of the resources it created; a replay returns the ids of
// the first run.
func runIdempotent(ctx context.Context, logger *slog.Logger, keys idempotency.Store, scope string, userID uuid.UUID, clientKey string, fn func() ([]uuid.UUID, error)) ([]uuid.UUID, bool, error) {
	if clientKey == "" || keys == nil {
		ids, err := fn()
		return ids, false, err
	}
	key := scopedKey(scope, userID, clientKey)

	ids, reserved, err := keys.Reserve(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !reserved {
		logger.Info("Replaying idempotent request", "idempotency_key", clientKey, "scope", scope, "user_id", userID.String())
		return ids, true, nil
	}

	ids, err = fn()
	if err != nil {
		if releaseErr := keys.Release(ctx, key); releaseErr != nil {
			logger.Error("Failed to release idempotency key", "idempotency_key", key, "error", releaseErr)
		}
		return nil, false, err
	}

	if err := keys.Complete(ctx, key, ids); err != nil {
		// The write succeeded; a retry with this key will see the pending entry expire
		logger.Error("Failed to complete idempotency key", "idempotency_key", key, "error", err)
	}
	return ids, false, nil
}
