// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
)

// PostgresWalletDB is the PostgreSQL implementation of the Store interface.
type PostgresWalletDB struct {
	sqlStore
}

// A compile-time assertion to ensure that PostgresWalletDB implements the
// Store interface.
var _ Store = (*PostgresWalletDB)(nil)

// NewPostgresWalletDB creates a new PostgreSQL-based Store.
func NewPostgresWalletDB(db *sql.DB) (*PostgresWalletDB, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &PostgresWalletDB{
		sqlStore: sqlStore{
			db:      db,
			queries: newQueries(db, dialectPostgres),
		},
	}, nil
}
