package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shared-expense-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// nothing listens on port 1
	client, err := NewRedisClient(ctx, logger, &config.RedisConfig{Addr: "127.0.0.1:1"})

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "failed to ping Redis at 127.0.0.1:1")
}
