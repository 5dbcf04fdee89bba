// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// sqlStore implements Store on top of a SQL database. The SQLite and
// PostgreSQL stores only differ in their dialect and migrations.
type sqlStore struct {
	db      *sql.DB
	queries *Queries
}

// ExecuteTx executes a function within a database transaction. The function
// receives a transactional query executor and should perform all database
// operations using it. The transaction will be automatically committed on
// success or rolled back on error.
func (s *sqlStore) ExecuteTx(ctx context.Context,
	fn func(*Queries) error) error {

	return execInTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(s.queries.WithTx(tx))
	})
}

// CreateWallet registers a wallet, renaming it if it is already registered.
func (s *sqlStore) CreateWallet(ctx context.Context,
	params CreateWalletParams) error {

	_, err := s.queries.exec(
		ctx, upsertWalletQuery, params.ID[:], params.Name,
		int64(params.Network), params.CreatedAt.Unix(),
	)
	if err != nil {
		return newError(ErrDatabase, "create wallet", err)
	}

	log.Debugf("Registered wallet %v (%s)", params.ID, params.Name)

	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*WalletInfo, error) {
	var (
		info      WalletInfo
		id        []byte
		network   int64
		createdAt int64
	)
	if err := row.Scan(&id, &info.Name, &network, &createdAt); err != nil {
		return nil, err
	}

	if err := copyHash(&info.ID, id); err != nil {
		return nil, err
	}
	netNum, err := readColumn[uint8]("network", network)
	if err != nil {
		return nil, err
	}
	info.Network = netNum
	info.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &info, nil
}

func copyHash(h *chainhash.Hash, b []byte) error {
	if len(b) != chainhash.HashSize {
		return fmt.Errorf("invalid wallet id length %d", len(b))
	}
	copy(h[:], b)

	return nil
}

// GetWallet returns a registered wallet.
func (s *sqlStore) GetWallet(ctx context.Context,
	id chainhash.Hash) (*WalletInfo, error) {

	info, err := scanWallet(s.queries.queryRow(ctx, getWalletQuery, id[:]))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, newError(ErrWalletNotFound,
			fmt.Sprintf("wallet %v not found", id), nil)

	case err != nil:
		return nil, newError(ErrDatabase, "get wallet", err)
	}

	return info, nil
}

// ListWallets returns every registered wallet, oldest first.
func (s *sqlStore) ListWallets(ctx context.Context) ([]WalletInfo, error) {
	rows, err := s.queries.query(ctx, listWalletsQuery)
	if err != nil {
		return nil, newError(ErrDatabase, "list wallets", err)
	}
	defer rows.Close()

	var wallets []WalletInfo
	for rows.Next() {
		info, err := scanWallet(rows)
		if err != nil {
			return nil, newError(ErrDatabase, "scan wallet", err)
		}
		wallets = append(wallets, *info)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrDatabase, "list wallets", err)
	}

	return wallets, nil
}

// DeleteWallet removes a wallet together with its addresses.
func (s *sqlStore) DeleteWallet(ctx context.Context, id chainhash.Hash) error {
	return s.ExecuteTx(ctx, func(q *Queries) error {
		res, err := q.exec(ctx, deleteWalletQuery, id[:])
		if err != nil {
			return newError(ErrDatabase, "delete wallet", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return newError(ErrDatabase, "delete wallet", err)
		}
		if n == 0 {
			return newError(ErrWalletNotFound,
				fmt.Sprintf("wallet %v not found", id), nil)
		}

		return nil
	})
}

// PutAddresses stores the addresses of a registered wallet in a single
// transaction.
func (s *sqlStore) PutAddresses(ctx context.Context, walletID chainhash.Hash,
	addrs []AddressInfo) (int, error) {

	var added int
	err := s.ExecuteTx(ctx, func(q *Queries) error {
		if _, err := scanWallet(
			q.queryRow(ctx, getWalletQuery, walletID[:]),
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return newError(ErrWalletNotFound,
					fmt.Sprintf("wallet %v not found",
						walletID), nil)
			}

			return newError(ErrDatabase, "get wallet", err)
		}

		for _, addr := range addrs {
			res, err := q.exec(
				ctx, insertAddressQuery, walletID[:],
				int64(addr.Class), int64(addr.Branch),
				int64(addr.Index), addr.Address,
				addr.ScriptPubKey,
			)
			if err != nil {
				return newError(ErrDatabase, "insert address", err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return newError(ErrDatabase, "insert address", err)
			}
			added += int(n)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Tracef("Indexed %d of %d addresses for wallet %v", added,
		len(addrs), walletID)

	return added, nil
}

func scanAddress(row rowScanner) (AddressInfo, error) {
	var (
		addr                 AddressInfo
		id                   []byte
		class, branch, index int64
	)
	err := row.Scan(
		&id, &class, &branch, &index, &addr.Address, &addr.ScriptPubKey,
	)
	if err != nil {
		return addr, err
	}

	if err := copyHash(&addr.WalletID, id); err != nil {
		return addr, err
	}
	if addr.Class, err = readColumn[uint8]("class", class); err != nil {
		return addr, err
	}
	addr.Branch, err = readColumn[uint32]("address_branch", branch)
	if err != nil {
		return addr, err
	}
	addr.Index, err = readColumn[uint32]("address_index", index)
	if err != nil {
		return addr, err
	}

	return addr, nil
}

func (s *sqlStore) listAddresses(ctx context.Context, limit int,
	query string, args ...any) ([]AddressInfo, error) {

	rows, err := s.queries.query(ctx, query, args...)
	if err != nil {
		return nil, newError(ErrDatabase, "list addresses", err)
	}
	defer rows.Close()

	var addrs []AddressInfo
	for rows.Next() {
		if limit > 0 && len(addrs) == limit {
			break
		}

		addr, err := scanAddress(rows)
		if err != nil {
			return nil, newError(ErrDatabase, "scan address", err)
		}
		addrs = append(addrs, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(ErrDatabase, "list addresses", err)
	}

	return addrs, nil
}

// ListAddresses returns the indexed addresses of a wallet.
func (s *sqlStore) ListAddresses(ctx context.Context,
	query ListAddressesQuery) ([]AddressInfo, error) {

	var (
		anyClass  = query.Class == nil
		anyBranch = query.Branch == nil
		class     int64
		branch    int64
	)
	if query.Class != nil {
		class = int64(*query.Class)
	}
	if query.Branch != nil {
		branch = int64(*query.Branch)
	}

	return s.listAddresses(
		ctx, query.Limit, listAddressesQuery, query.WalletID[:],
		anyClass, class, anyBranch, branch,
	)
}

// LookupScript returns every indexed address paying to the script.
func (s *sqlStore) LookupScript(ctx context.Context,
	scriptPubKey []byte) ([]AddressInfo, error) {

	return s.listAddresses(ctx, 0, lookupScriptQuery, scriptPubKey)
}

// NextIndex returns the first index of the branch not yet indexed.
func (s *sqlStore) NextIndex(ctx context.Context,
	query NextIndexQuery) (uint32, error) {

	var maxIndex sql.NullInt64
	err := s.queries.queryRow(
		ctx, maxIndexQuery, query.WalletID[:], int64(query.Class),
		int64(query.Branch),
	).Scan(&maxIndex)
	if err != nil {
		return 0, newError(ErrDatabase, "max address index", err)
	}

	index, err := nextIndex(maxIndex)
	if err != nil {
		return 0, fmt.Errorf("branch %d: %w", query.Branch, err)
	}

	return index, nil
}
