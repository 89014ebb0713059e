package migration

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Migrator applies SQL migrations to the scribe database
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator inits migrator for path, e.g. file://db/migrations
func NewMigrator(dbURL, path string) (*Migrator, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("no db URL")
	}
	if path == "" {
		return nil, fmt.Errorf("no migration path")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("can't open db: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("can't init migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("can't init migrator: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies all pending migrations
func (mg *Migrator) Up() error {
	defer func() { _, _ = mg.m.Close() }()
	if err := mg.m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("can't apply migrations: %w", err)
	}
	return nil
}

// Down rolls back all migrations
func (mg *Migrator) Down() error {
	defer func() { _, _ = mg.m.Close() }()
	if err := mg.m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("can't rollback migrations: %w", err)
	}
	return nil
}
