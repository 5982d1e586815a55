package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations brings the schema up to date from the given migration
// source. An already-migrated schema is not an error.
func RunMigrations(sourceURL, dsn string) error {
	const op = "database.postgres.RunMigrations"

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrator: %w", op, err)
	}

	upErr := m.Up()
	if errors.Is(upErr, migrate.ErrNoChange) {
		upErr = nil
	}

	srcErr, dbErr := m.Close()
	switch {
	case upErr != nil:
		return fmt.Errorf("%s: failed to apply migrations: %w", op, upErr)
	case srcErr != nil:
		return fmt.Errorf("%s: failed to close migration source: %w", op, srcErr)
	case dbErr != nil:
		return fmt.Errorf("%s: failed to close migration database: %w", op, dbErr)
	}

	return nil
}
