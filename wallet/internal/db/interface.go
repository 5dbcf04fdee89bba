// Copyright (c) 2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Store is the top-level interface of the address index. It combines the
// more granular sub-interfaces.
type Store interface {
	WalletStore
	AddressStore
}

// WalletStore defines the methods for wallet-level operations. Wallets are
// identified by the id of their wallet descriptor.
type WalletStore interface {
	CreateWallet(ctx context.Context, params CreateWalletParams) error
	GetWallet(ctx context.Context, id chainhash.Hash) (*WalletInfo, error)
	ListWallets(ctx context.Context) ([]WalletInfo, error)
	DeleteWallet(ctx context.Context, id chainhash.Hash) error
}

// AddressStore defines the database actions for the addresses derived from
// the descriptors of a wallet.
type AddressStore interface {
	// PutAddresses stores the addresses, skipping positions already
	// indexed, and returns how many were added.
	PutAddresses(ctx context.Context, walletID chainhash.Hash,
		addrs []AddressInfo) (int, error)

	// ListAddresses returns the indexed addresses of a wallet ordered by
	// class, branch and index.
	ListAddresses(ctx context.Context,
		query ListAddressesQuery) ([]AddressInfo, error)

	// LookupScript returns every indexed address paying to the script,
	// across all wallets.
	LookupScript(ctx context.Context, scriptPubKey []byte) ([]AddressInfo,
		error)

	// NextIndex returns the index following the highest indexed address
	// of the branch.
	NextIndex(ctx context.Context, query NextIndexQuery) (uint32, error)
}
