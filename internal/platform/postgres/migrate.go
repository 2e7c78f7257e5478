package postgres

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"goal-auth-bridge/internal/common/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationSource returns the embedded schema migrations.
func MigrationSource() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// Migrate brings the schema up to the latest embedded version.
func Migrate(db *sql.DB) error {
	src, err := MigrationSource()
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database schema up to date")
	return nil
}
