// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network is a public bitcoin network a wallet can be used on.
type Network uint8

const (
	// Testnet is the default network of new wallets.
	Testnet Network = iota

	// Mainnet is the bitcoin main network.
	Mainnet

	// Signet is the default signet.
	Signet
)

// String returns the name of the network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Signet:
		return "signet"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(n))
	}
}

// ParseNetwork is the inverse of Network.String.
func ParseNetwork(s string) (Network, error) {
	for _, n := range []Network{Mainnet, Testnet, Signet} {
		if n.String() == s {
			return n, nil
		}
	}

	return 0, fmt.Errorf("unknown network %q", s)
}

// IsTestnet reports whether keys of the network use the test coin type and
// test version bytes.
func (n Network) IsTestnet() bool {
	return n != Mainnet
}

// Params returns the chain parameters of the network.
func (n Network) Params() *chaincfg.Params {
	switch n {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Signet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}
