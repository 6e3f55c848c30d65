package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrate applies all pending schema migrations for the store's dialect and
// returns the resulting schema version.
func (s *Store) Migrate() (uint, error) {
	var (
		driver database.Driver
		err    error
	)
	dialect := s.dialect()
	switch dialect {
	case dialectSQLite:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	}
	if err != nil {
		return 0, fmt.Errorf("store: migrate driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+dialect)
	if err != nil {
		return 0, fmt.Errorf("store: migrate source: %w", err)
	}

	// The migrate instance is not closed: closing it would close s.db too.
	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return 0, fmt.Errorf("store: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("store: migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("store: migrate version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("store: schema version %d is dirty", version)
	}

	s.logger.Info("[store] Schema at version %d (%s)", version, dialect)
	return version, nil
}
