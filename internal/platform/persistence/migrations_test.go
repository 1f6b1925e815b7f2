package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_RequiresInputs(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.ErrorIs(t, RunMigrations(logger, "postgres://ledger@localhost/ledger", ""), errEmptyMigrationsPath)
	assert.ErrorIs(t, RunMigrations(logger, "", "./migrations/postgres"), errEmptyDatabaseURL)
}

func TestRunMigrations_MissingSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := RunMigrations(logger, "postgres://ledger@localhost/ledger", "./does-not-exist")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrate instance")
}

func TestMigrationSource(t *testing.T) {
	assert.Equal(t, "file://./migrations/postgres", migrationSource("./migrations/postgres"))
	assert.Equal(t, "file:///srv/migrations", migrationSource("file:///srv/migrations"))
}

func TestErrDirtySchema(t *testing.T) {
	err := ErrDirtySchema{Version: 3}
	assert.Contains(t, err.Error(), "dirty at version 3")
}
