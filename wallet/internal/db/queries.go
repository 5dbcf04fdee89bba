// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// DBTX is the query interface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// dialect selects the placeholder syntax of a database.
type dialect uint8

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// rebind rewrites the ? placeholders of a query for the dialect.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}

	return b.String()
}

const (
	upsertWalletQuery = `
INSERT INTO wallets (id, name, network, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name`

	getWalletQuery = `
SELECT id, name, network, created_at FROM wallets WHERE id = ?`

	listWalletsQuery = `
SELECT id, name, network, created_at FROM wallets ORDER BY created_at, id`

	deleteWalletQuery = `DELETE FROM wallets WHERE id = ?`

	insertAddressQuery = `
INSERT INTO addresses (
	wallet_id, class, address_branch, address_index, address,
	script_pub_key
)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (wallet_id, class, address_branch, address_index) DO NOTHING`

	listAddressesQuery = `
SELECT wallet_id, class, address_branch, address_index, address,
	script_pub_key
FROM addresses
WHERE wallet_id = ?
	AND (? OR class = ?)
	AND (? OR address_branch = ?)
ORDER BY class, address_branch, address_index`

	lookupScriptQuery = `
SELECT wallet_id, class, address_branch, address_index, address,
	script_pub_key
FROM addresses
WHERE script_pub_key = ?
ORDER BY wallet_id, class, address_branch, address_index`

	maxIndexQuery = `
SELECT MAX(address_index) FROM addresses
WHERE wallet_id = ? AND class = ? AND address_branch = ?`
)

// Queries runs the address index statements against a database or a
// transaction.
type Queries struct {
	db      DBTX
	dialect dialect
}

// newQueries returns the queries of the dialect on the database.
func newQueries(db DBTX, d dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

// WithTx returns the queries bound to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

func (q *Queries) exec(ctx context.Context, query string,
	args ...any) (sql.Result, error) {

	return q.db.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string,
	args ...any) (*sql.Rows, error) {

	return q.db.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string,
	args ...any) *sql.Row {

	return q.db.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}
