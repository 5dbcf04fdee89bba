// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"database/sql"
)

// SQLiteWalletDB is the SQLite implementation of the Store interface.
type SQLiteWalletDB struct {
	sqlStore
}

// A compile-time assertion to ensure that SQLiteWalletDB implements the
// Store interface.
var _ Store = (*SQLiteWalletDB)(nil)

// NewSQLiteWalletDB creates a new SQLite-based Store.
func NewSQLiteWalletDB(db *sql.DB) (*SQLiteWalletDB, error) {
	if db == nil {
		return nil, ErrNilDB
	}

	return &SQLiteWalletDB{
		sqlStore: sqlStore{
			db:      db,
			queries: newQueries(db, dialectSQLite),
		},
	}, nil
}
