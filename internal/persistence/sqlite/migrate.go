package sqlite

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "schema_migrations"

// MigrationStatus reports the schema version after a migration run.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

func (cp *ConnectionPool) newMigrator() (*migrate.Migrate, error) {
	driver, err := sqlitemigrate.WithInstance(cp.db, &sqlitemigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("failed to init migration driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to embed migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "timetable", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// Migrate applies every pending embedded migration. The migrator is not
// closed afterwards because closing it would close the pool's database.
func (cp *ConnectionPool) Migrate(logger *slog.Logger) (MigrationStatus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := cp.newMigrator()
	if err != nil {
		return MigrationStatus{}, err
	}

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return MigrationStatus{}, fmt.Errorf("failed to run migrations: %w", err)
		}
		applied = false
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	status := MigrationStatus{Version: version, Dirty: dirty, Applied: applied}
	logger.Info("schema migrations complete",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.Bool("applied", applied),
	)
	return status, nil
}
