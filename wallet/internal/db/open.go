// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	// Register the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	// Register the pure Go sqlite database/sql driver.
	_ "modernc.org/sqlite"
)

const (
	// DriverSQLite selects the SQLite backend.
	DriverSQLite = "sqlite"

	// DriverPostgres selects the PostgreSQL backend.
	DriverPostgres = "postgres"
)

// sqlitePragmas are appended to SQLite file names. Foreign keys are needed
// for address rows to be removed with their wallet.
var sqlitePragmas = []string{
	"_pragma=foreign_keys=on",
	"_pragma=journal_mode=WAL",
	"_pragma=busy_timeout=5000",
	"_txlock=immediate",
}

// sqliteDSN returns the data source name of a SQLite database file.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + strings.Join(sqlitePragmas, "&")
}

// Open connects to the address index, applies the migrations of the backend
// and returns the store together with the database to close when done. For
// SQLite dsn is the database file path.
func Open(driver, dsn string) (Store, *sql.DB, error) {
	switch driver {
	case DriverSQLite:
		dbConn, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, nil, err
		}
		if err := ApplySQLiteMigrations(dbConn); err != nil {
			_ = dbConn.Close()
			return nil, nil, err
		}

		store, err := NewSQLiteWalletDB(dbConn)
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, err
		}

		return store, dbConn, nil

	case DriverPostgres:
		dbConn, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := ApplyPostgresMigrations(dbConn); err != nil {
			_ = dbConn.Close()
			return nil, nil, err
		}

		store, err := NewPostgresWalletDB(dbConn)
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, err
		}

		return store, dbConn, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
