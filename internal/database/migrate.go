package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// DefaultMigrationsPath is where the SQL migrations live relative to the
// working directory
const DefaultMigrationsPath = "file://migrations"

// Migrator runs the postgres schema migrations
type Migrator struct {
	db     *gorm.DB
	source string
}

func NewMigrator(db *gorm.DB, source string) *Migrator {
	if source == "" {
		source = DefaultMigrationsPath
	}
	return &Migrator{db: db, source: source}
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	mg, err := migrate.NewWithDatabaseInstance(m.source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mg, nil
}

// Up applies every pending migration. It reports whether anything changed.
func (m *Migrator) Up() (bool, error) {
	mg, err := m.open()
	if err != nil {
		return false, err
	}
	defer mg.Close()

	err = mg.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to run migrations: %w", err)
	}
	return true, nil
}

// Down rolls back steps migrations, never below version 0
func (m *Migrator) Down(steps int) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	currentVersion, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state, manual intervention required")
	}

	target := int(currentVersion) - steps
	if target <= 0 {
		err = mg.Down()
	} else {
		err = mg.Migrate(uint(target))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// Version returns the applied version and whether it is dirty
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}
