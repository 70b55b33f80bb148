package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// NewMigrator opens a migrator over the SQL files in dir. An empty dir is
// resolved by FindMigrationDir.
func NewMigrator(dsn, dir string) (*migrate.Migrate, error) {
	if dir == "" {
		dir = FindMigrationDir()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve migrations dir: %w", err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration. A dirty schema is refused:
// it needs a manual `migrate force` before the API may start on it.
func RunMigrations(dsn, dir string, logger *slog.Logger) error {
	m, err := NewMigrator(dsn, dir)
	if err != nil {
		return err
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return errors.New("schema is dirty; resolve the failed migration before starting")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrations applied", "version", version)
	return nil
}

// FindMigrationDir walks up from the working directory to the first
// db/migrations, so binaries and tests work from any package directory.
func FindMigrationDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "db/migrations"
	}
	for {
		candidate := filepath.Join(dir, "db", "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "db/migrations"
		}
		dir = parent
	}
}
