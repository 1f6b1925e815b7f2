package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var (
	errEmptyMigrationsPath = errors.New("migrations path cannot be empty")
	errEmptyDatabaseURL    = errors.New("database URL cannot be empty")
)

// ErrDirtySchema means an earlier migration failed halfway and needs manual repair
type ErrDirtySchema struct {
	Version uint
}

func (e ErrDirtySchema) Error() string {
	return fmt.Sprintf("schema is dirty at version %d, fix it and force the version before restarting", e.Version)
}

// migrationSource turns a directory into a golang-migrate source URL
func migrationSource(migrationsPath string) string {
	if strings.HasPrefix(migrationsPath, "file://") {
		return migrationsPath
	}
	return "file://" + migrationsPath
}

// RunMigrations brings the ledger schema up to the latest version found in
// migrationsPath (e.g. ./migrations/postgres).
func RunMigrations(logger *slog.Logger, databaseURL string, migrationsPath string) error {
	if migrationsPath == "" {
		return errEmptyMigrationsPath
	}
	if databaseURL == "" {
		return errEmptyDatabaseURL
	}

	m, err := migrate.New(migrationSource(migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrate instance", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	if version, dirty, err := m.Version(); err == nil && dirty {
		return ErrDirtySchema{Version: version}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Ledger schema is up to date", "version", version)
	return nil
}
