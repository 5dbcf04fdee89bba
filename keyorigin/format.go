// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyorigin

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
)

type originKind uint8

const (
	originMaster originKind = iota
	originSubMaster
	originStandard
	originCustom
)

// OriginFormat classifies a derivation path from a master key for display.
type OriginFormat struct {
	kind     originKind
	index    uint32
	standard DerivationStandard
	account  uint32
	testnet  bool
	path     []uint32
}

// OriginFormatOf classifies the path. Paths of a known standard that reach
// the account level become a standard origin, the empty path is the master
// key and a single step is a sub-master key.
func OriginFormatOf(path []uint32) OriginFormat {
	std, known := optionValue(DeduceStandard(path))
	scheme, isBip43 := std.(bip43)

	standard := known && isBip43 && scheme.kind != kindGeneric &&
		len(path) >= 3 && descriptor.IsHardened(path[1]) &&
		descriptor.IsHardened(path[2])
	if standard {
		coin := path[1] - hdkeychain.HardenedKeyStart

		return OriginFormat{
			kind:     originStandard,
			standard: std,
			account:  path[2] - hdkeychain.HardenedKeyStart,
			testnet:  coin != coinTypeMainnet,
		}
	}

	switch len(path) {
	case 0:
		return OriginFormat{kind: originMaster}
	case 1:
		return OriginFormat{kind: originSubMaster, index: path[0]}
	default:
		return OriginFormat{
			kind: originCustom,
			path: append([]uint32(nil), path...),
		}
	}
}

// String renders the origin.
func (o OriginFormat) String() string {
	switch o.kind {
	case originMaster:
		return "m/"
	case originSubMaster:
		return descriptor.FormatIndex(o.index)
	case originStandard:
		return "m/" + descriptor.FormatPath(
			o.standard.AccountPath(o.account, o.testnet),
		)
	default:
		return "m/" + descriptor.FormatPath(o.path)
	}
}

// Account returns the account of the origin, if it has one.
func (o OriginFormat) Account() fn.Option[uint32] {
	switch o.kind {
	case originSubMaster:
		if !descriptor.IsHardened(o.index) {
			return fn.None[uint32]()
		}
		return fn.Some(o.index - hdkeychain.HardenedKeyStart)

	case originStandard:
		return fn.Some(o.account)

	default:
		return fn.None[uint32]()
	}
}

// Standard returns the derivation standard of a standard origin.
func (o OriginFormat) Standard() fn.Option[DerivationStandard] {
	if o.kind != originStandard {
		return fn.None[DerivationStandard]()
	}

	return fn.Some(o.standard)
}
