// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

// schema is the address index schema of one backend.
type schema struct {
	backend string
	files   embed.FS
	dir     string
	driver  func(*sql.DB) (database.Driver, error)
}

var (
	sqliteSchema = schema{
		backend: "sqlite",
		files:   sqliteFS,
		dir:     "migrations/sqlite",
		driver: func(db *sql.DB) (database.Driver, error) {
			return sqlite.WithInstance(db, &sqlite.Config{})
		},
	}

	postgresSchema = schema{
		backend: "postgres",
		files:   postgresFS,
		dir:     "migrations/postgres",
		driver: func(db *sql.DB) (database.Driver, error) {
			return postgres.WithInstance(db, &postgres.Config{})
		},
	}
)

// migrate brings the database up to the latest schema version. The
// migrator is not closed since that would close the database.
func (s schema) migrate(db *sql.DB) error {
	source, err := iofs.New(s.files, s.dir)
	if err != nil {
		return fmt.Errorf("%s migrations: %w", s.backend, err)
	}

	target, err := s.driver(db)
	if err != nil {
		return fmt.Errorf("%s migration driver: %w", s.backend, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.backend, target)
	if err != nil {
		return fmt.Errorf("%s migrator: %w", s.backend, err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s migration: %w", s.backend, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("%s schema version: %w", s.backend, err)
	}
	if dirty {
		return fmt.Errorf("%s schema version %d is dirty", s.backend,
			version)
	}
	log.Debugf("Address index %s schema at version %d", s.backend,
		version)

	return nil
}

// ApplySQLiteMigrations creates or upgrades the SQLite address index.
func ApplySQLiteMigrations(db *sql.DB) error {
	return sqliteSchema.migrate(db)
}

// ApplyPostgresMigrations creates or upgrades the PostgreSQL address index.
func ApplyPostgresMigrations(db *sql.DB) error {
	return postgresSchema.migrate(db)
}
