// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// UnsatisfiableKey returns the nothing-up-my-sleeve point G + sha256(G)·G,
// where G is serialized in compressed form. The key is used as the taproot
// internal key of wallets that must only be spent through the script path.
func UnsatisfiableKey() *btcec.PublicKey {
	var one, tweak secp.ModNScalar
	one.SetInt(1)

	var generator secp.JacobianPoint
	secp.ScalarBaseMultNonConst(&one, &generator)
	generator.ToAffine()

	g := secp.NewPublicKey(&generator.X, &generator.Y)
	h := sha256.Sum256(g.SerializeCompressed())
	tweak.SetBytes(&h)

	var tweakPoint, result secp.JacobianPoint
	secp.ScalarBaseMultNonConst(&tweak, &tweakPoint)
	secp.AddNonConst(&generator, &tweakPoint, &result)
	result.ToAffine()

	return btcec.NewPublicKey(&result.X, &result.Y)
}

// UnsatisfiableXpub turns the unsatisfiable key into a root extended public
// key of the given network: depth zero, zero parent fingerprint and child
// number, and the x coordinate of the key as the chain code.
func UnsatisfiableXpub(net *chaincfg.Params) *hdkeychain.ExtendedKey {
	keyBytes := UnsatisfiableKey().SerializeCompressed()
	chainCode := keyBytes[1:]

	return hdkeychain.NewExtendedKey(
		net.HDPublicKeyID[:], keyBytes, chainCode, []byte{0, 0, 0, 0},
		0, 0, false,
	)
}

// UnsatisfiableTrackingKey returns a tracking key without a known master
// over the unsatisfiable xpub, derived along the given terminal.
func UnsatisfiableTrackingKey(net *chaincfg.Params,
	terminal Terminal) *TrackingKey {

	return &TrackingKey{
		Master:   fn.None[Fingerprint](),
		Xpub:     UnsatisfiableXpub(net),
		Terminal: terminal,
	}
}
