// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package db

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// CreateWalletParams holds the parameters of a wallet to register.
type CreateWalletParams struct {
	// ID is the id of the wallet descriptor.
	ID chainhash.Hash

	// Name is a human readable name, updated when the wallet is
	// registered again.
	Name string

	// Network is the network number of the wallet.
	Network uint8

	// CreatedAt is the time the wallet was first registered.
	CreatedAt time.Time
}

// WalletInfo is a registered wallet.
type WalletInfo struct {
	ID        chainhash.Hash
	Name      string
	Network   uint8
	CreatedAt time.Time
}

// AddressInfo is an indexed address.
type AddressInfo struct {
	// WalletID is the id of the wallet the address belongs to.
	WalletID chainhash.Hash

	// Class is the descriptor class number of the address.
	Class uint8

	// Branch is the value of the change wildcard.
	Branch uint32

	// Index is the value of the index wildcard.
	Index uint32

	// Address is the encoded address.
	Address string

	// ScriptPubKey is the output script.
	ScriptPubKey []byte
}

// ListAddressesQuery selects the addresses of a wallet.
type ListAddressesQuery struct {
	WalletID chainhash.Hash

	// Class restricts the result to a descriptor class when set.
	Class *uint8

	// Branch restricts the result to a branch when set.
	Branch *uint32

	// Limit caps the number of results when positive.
	Limit int
}

// NextIndexQuery identifies an address branch of a wallet.
type NextIndexQuery struct {
	WalletID chainhash.Hash
	Class    uint8
	Branch   uint32
}
