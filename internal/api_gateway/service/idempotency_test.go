package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shared-expense-ledger/internal/domain/idempotency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string) ([]uuid.UUID, bool, error) {
	args := m.Called(ctx, key)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key string, ids []uuid.UUID) error {
	args := m.Called(ctx, key, ids)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestRunIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	id := uuid.New()
	userID := uuid.New()
	key := scopedKey(scopeCreateExpense, userID, "k")

	t.Run("NoKeyRunsDirectly", func(t *testing.T) {
		keys := new(MockIdempotencyStore)

		ids, replayed, err := runIdempotent(ctx, logger, keys, scopeCreateExpense, userID, "", func() ([]uuid.UUID, error) {
			return []uuid.UUID{id}, nil
		})

		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, []uuid.UUID{id}, ids)
		keys.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything)
	})

	t.Run("CompletesAfterSuccess", func(t *testing.T) {
		keys := new(MockIdempotencyStore)
		keys.On("Reserve", ctx, key).Return(nil, true, nil)
		keys.On("Complete", ctx, key, []uuid.UUID{id}).Return(nil)

		_, replayed, err := runIdempotent(ctx, logger, keys, scopeCreateExpense, userID, "k", func() ([]uuid.UUID, error) {
			return []uuid.UUID{id}, nil
		})

		require.NoError(t, err)
		assert.False(t, replayed)
		keys.AssertExpectations(t)
	})

	t.Run("ReplaySkipsWork", func(t *testing.T) {
		keys := new(MockIdempotencyStore)
		keys.On("Reserve", ctx, key).Return([]uuid.UUID{id}, false, nil)
		called := false

		ids, replayed, err := runIdempotent(ctx, logger, keys, scopeCreateExpense, userID, "k", func() ([]uuid.UUID, error) {
			called = true
			return nil, nil
		})

		require.NoError(t, err)
		assert.True(t, replayed)
		assert.False(t, called)
		assert.Equal(t, []uuid.UUID{id}, ids)
	})

	t.Run("InProgress", func(t *testing.T) {
		keys := new(MockIdempotencyStore)
		keys.On("Reserve", ctx, key).Return(nil, false, idempotency.ErrInProgress)

		_, _, err := runIdempotent(ctx, logger, keys, scopeCreateExpense, userID, "k", func() ([]uuid.UUID, error) {
			return nil, nil
		})

		assert.ErrorIs(t, err, idempotency.ErrInProgress)
	})

	t.Run("ReleasesOnFailure", func(t *testing.T) {
		keys := new(MockIdempotencyStore)
		keys.On("Reserve", ctx, key).Return(nil, true, nil)
		keys.On("Release", ctx, key).Return(nil)
		boom := errors.New("boom")

		_, _, err := runIdempotent(ctx, logger, keys, scopeCreateExpense, userID, "k", func() ([]uuid.UUID, error) {
			return nil, boom
		})

		assert.ErrorIs(t, err, boom)
		keys.AssertExpectations(t)
		keys.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestScopedKey(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, "settlement:"+a.String()+":k1", scopedKey(scopeRecordSettlement, a, "k1"))
	assert.NotEqual(t, scopedKey(scopeRecordSettlement, a, "k1"), scopedKey(scopeRecordSettlement, b, "k1"))
	assert.NotEqual(t, scopedKey(scopeCreateExpense, a, "k1"), scopedKey(scopeRecordSettlement, a, "k1"))
}
