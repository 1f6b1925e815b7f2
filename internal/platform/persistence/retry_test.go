package persistence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shared-expense-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	policy := RetryPolicy{Timeout: time.Second, MaxAttempts: 2, Backoff: time.Millisecond}

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, logger, "test", func(ctx context.Context) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries a timeout once then succeeds", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, logger, "test", func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return context.DeadlineExceeded
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("retryable failure becomes StoreError", func(t *testing.T) {
		calls := 0
		err := policy.Do(ctx, logger, "create expense", func(ctx context.Context) error {
			calls++
			return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		})

		var storeErr *shared.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "create expense", storeErr.Op)
		assert.Equal(t, 2, calls)
	})

	t.Run("non retryable failure returned as is", func(t *testing.T) {
		calls := 0
		boom := errors.New("unique violation")
		err := policy.Do(ctx, logger, "test", func(ctx context.Context) error {
			calls++
			return boom
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("attempt is bounded by timeout", func(t *testing.T) {
		short := RetryPolicy{Timeout: 10 * time.Millisecond, MaxAttempts: 1}
		err := short.Do(ctx, logger, "slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		var storeErr *shared.StoreError
		assert.ErrorAs(t, err, &storeErr)
		assert.True(t, shared.IsTimeout(err))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
}
