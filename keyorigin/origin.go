// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keyorigin reconciles extended public keys with the derivation
// metadata supplied with them: the SLIP-132 version prefix, an explicitly
// chosen derivation standard and the derivation path from the master key.
package keyorigin

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
)

// XpubOrigin is the origin information of an account level or deeper
// extended public key.
type XpubOrigin struct {
	// Testnet is set when the key itself is encoded for a test network.
	Testnet bool

	// MasterFingerprint is the fingerprint of the master key, if known.
	MasterFingerprint fn.Option[descriptor.Fingerprint]

	// Standard is the derivation standard of the key, if known.
	Standard fn.Option[DerivationStandard]

	// Account is the account number, without the hardened offset.
	Account fn.Option[uint32]
}

// keyTestnet reports whether the key is encoded for a test network according
// to its own version bytes.
func keyTestnet(xpub *hdkeychain.ExtendedKey) bool {
	return KeyVersionFromBytes(xpub.Version()).Network().UnwrapOr(false)
}

// ResolveWith builds the origin of an account level or deeper key from the
// key itself, an explicitly required standard and the SLIP-132 version the
// key was presented with. The checks run in order:
//
//  1. the standard implied by the SLIP-132 version must match the required
//     one;
//  2. the network implied by the SLIP-132 version must match the network of
//     the key;
//  3. the key must not be shallower than the account level of its standard;
//  4. a key at the account level must be derived at a hardened index, which
//     becomes the account when the account index is the last path step.
func ResolveWith(master fn.Option[descriptor.Fingerprint],
	xpub *hdkeychain.ExtendedKey, standard fn.Option[DerivationStandard],
	slip fn.Option[KeyVersion]) (*XpubOrigin, error) {

	inferred := fn.FlatMapOption(func(v KeyVersion) fn.Option[
		DerivationStandard] {

		return v.Application()
	})(slip)

	required, hasRequired := optionValue(standard)
	actual, hasActual := optionValue(inferred)
	if hasRequired && hasActual && required != actual {
		return nil, &XpubRequirementError{
			Kind:             StandardMismatch,
			ActualStandard:   actual.String(),
			RequiredStandard: required.String(),
		}
	}

	testnet := keyTestnet(xpub)
	slipNetwork := fn.FlatMapOption(func(v KeyVersion) fn.Option[bool] {
		return v.Network()
	})(slip)
	if slipTestnet, ok := optionValue(slipNetwork); ok &&
		slipTestnet != testnet {

		return nil, &XpubRequirementError{
			Kind:        NetworkMismatch,
			SlipTestnet: slipTestnet,
			KeyTestnet:  testnet,
		}
	}

	resolved := standard.Alt(inferred)
	account, err := accountOf(xpub, resolved)
	if err != nil {
		return nil, err
	}

	return &XpubOrigin{
		Testnet:           testnet,
		MasterFingerprint: master,
		Standard:          resolved,
		Account:           account,
	}, nil
}

// accountOf checks the depth of the key against its standard and extracts
// the account from an account level key.
func accountOf(xpub *hdkeychain.ExtendedKey,
	standard fn.Option[DerivationStandard]) (fn.Option[uint32], error) {

	none := fn.None[uint32]()

	std, ok := optionValue(standard)
	if !ok {
		return none, nil
	}
	accountDepth, ok := optionValue(std.AccountDepth())
	if !ok {
		return none, nil
	}

	depth := xpub.Depth()
	switch {
	case depth < accountDepth:
		return none, &XpubRequirementError{
			Kind:          ShallowKey,
			Standard:      std.String(),
			RequiredDepth: accountDepth,
			ActualDepth:   depth,
		}

	case depth > accountDepth:
		return none, nil
	}

	child := xpub.ChildIndex()
	if !descriptor.IsHardened(child) {
		return none, &XpubRequirementError{
			Kind:     UnhardenedAccountKey,
			Standard: std.String(),
			Index:    child,
		}
	}

	indexDepth, ok := optionValue(std.AccountIndexDepth())
	if !ok || indexDepth+1 != accountDepth {
		return none, nil
	}

	return fn.Some(child - hdkeychain.HardenedKeyStart), nil
}

// Deduce builds the origin of a key derived along the given path. The
// standard is guessed from the shape of the path.
//
// The returned error reports a path that does not follow the standard it
// was recognized as, which is a bug in the caller. The result carries the
// user facing XpubRequirementError of the key itself, including a coin type
// whose network differs from the SLIP-132 version.
func Deduce(master fn.Option[descriptor.Fingerprint], path []uint32,
	xpub *hdkeychain.ExtendedKey,
	slip fn.Option[KeyVersion]) (fn.Result[XpubOrigin], error) {

	standard := DeduceStandard(path)
	pathAccount := fn.None[uint32]()

	if std, ok := optionValue(standard); ok {
		var err error
		pathAccount, err = PathAccount(std, path)
		if err != nil {
			return fn.Result[XpubOrigin]{}, err
		}

		slipNetwork := fn.FlatMapOption(
			func(v KeyVersion) fn.Option[bool] {
				return v.Network()
			},
		)(slip)
		if slipTestnet, ok := optionValue(slipNetwork); ok {
			pathNetwork, err := PathNetwork(std, path)
			if err != nil {
				return fn.Result[XpubOrigin]{}, err
			}

			pathTestnet, ok := optionValue(pathNetwork)
			if ok && pathTestnet != slipTestnet {
				return fn.Err[XpubOrigin](&XpubRequirementError{
					Kind:        NetworkMismatch,
					SlipTestnet: slipTestnet,
					KeyTestnet:  pathTestnet,
				}), nil
			}
		}
	}

	origin, err := ResolveWith(master, xpub, standard, slip)
	if err != nil {
		return fn.Err[XpubOrigin](err), nil
	}
	if origin.Account.IsNone() {
		origin.Account = pathAccount
	}

	return fn.Ok(*origin), nil
}
