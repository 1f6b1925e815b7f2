package service

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
