package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// RetryPolicy bounds every attempt of a unit of work with Timeout and retries
// retryable failures up to MaxAttempts in total.
type RetryPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries once
var DefaultRetryPolicy = RetryPolicy{
	Timeout:     5 * time.Second,
	MaxAttempts: 2,
	Backoff:     50 * time.Millisecond,
}

// Do runs fn under the policy. When the last attempt fails with a retryable
// error the error is returned as a *shared.StoreError; other errors are
// returned unchanged after the first attempt.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil {
			return struct{}{}, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Backoff)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Retrying store operation", "op", op, "attempt", attempt, "backoff", next, "error", err)
		}),
	)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if IsRetryable(err) {
		logger.Error("Store operation failed after retries", "op", op, "attempts", attempt, "error", err)
		return &shared.StoreError{Op: op, Err: err}
	}
	return err
}

// IsRetryable reports whether a failed unit of work may be run again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// String describes the policy for startup logs
func (p RetryPolicy) String() string {
	return fmt.Sprintf("timeout=%s max_attempts=%d", p.Timeout, p.MaxAttempts)
}
