// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyorigin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
)

const (
	purposeLnpBp43 = 43
	purposeBip44   = 44
	purposeBip45   = 45
	purposeBip48   = 48
	purposeBip49   = 49
	purposeBip84   = 84
	purposeBip86   = 86
	purposeBip87   = 87

	// coinTypeMainnet and coinTypeTestnet are the SLIP-44 coin types of
	// bitcoin and of every bitcoin test network.
	coinTypeMainnet = 0
	coinTypeTestnet = 1

	// bip48ScriptNested and bip48ScriptNative are the BIP-48 script types
	// of P2SH-P2WSH and P2WSH wallets.
	bip48ScriptNested = 1
	bip48ScriptNative = 2
)

// DerivationStandard describes a BIP-43 style derivation scheme: where the
// coin type and account index live in a derivation path, how deep an account
// key is and which descriptor class the scheme is meant for.
type DerivationStandard interface {
	fmt.Stringer

	// Purpose returns the purpose index of the scheme, if it has one.
	Purpose() fn.Option[uint32]

	// AccountDepth returns the depth of account level keys.
	AccountDepth() fn.Option[uint8]

	// AccountIndexDepth returns the position of the account index in a
	// derivation path.
	AccountIndexDepth() fn.Option[uint8]

	// CoinTypeDepth returns the position of the coin type in a derivation
	// path.
	CoinTypeDepth() fn.Option[uint8]

	// IsAccountHardened reports whether the account index must be
	// hardened.
	IsAccountHardened() bool

	// DescriptorClass returns the descriptor class the scheme is used
	// with, if it is specific to one.
	DescriptorClass() fn.Option[descriptor.Class]

	// AccountPath returns the derivation path of the given account.
	AccountPath(account uint32, testnet bool) []uint32
}

type bip43Kind uint8

const (
	kindGeneric bip43Kind = iota
	kindBip44
	kindBip45
	kindBip48Nested
	kindBip48Native
	kindBip49
	kindBip84
	kindBip86
	kindBip87
)

// bip43 is a purpose based scheme with the m/purpose'/coin'/account' layout,
// with the exceptions of BIP-45 and BIP-48.
type bip43 struct {
	kind    bip43Kind
	purpose uint32
}

var (
	// Bip44 is the legacy single key scheme m/44'/coin'/account'.
	Bip44 DerivationStandard = bip43{kindBip44, purposeBip44}

	// Bip45 is the legacy multisig scheme m/45'/cosigner/change/index.
	Bip45 DerivationStandard = bip43{kindBip45, purposeBip45}

	// Bip48Nested is the multisig scheme m/48'/coin'/account'/1'.
	Bip48Nested DerivationStandard = bip43{kindBip48Nested, purposeBip48}

	// Bip48Native is the multisig scheme m/48'/coin'/account'/2'.
	Bip48Native DerivationStandard = bip43{kindBip48Native, purposeBip48}

	// Bip49 is the nested segwit scheme m/49'/coin'/account'.
	Bip49 DerivationStandard = bip43{kindBip49, purposeBip49}

	// Bip84 is the native segwit scheme m/84'/coin'/account'.
	Bip84 DerivationStandard = bip43{kindBip84, purposeBip84}

	// Bip86 is the single key taproot scheme m/86'/coin'/account'.
	Bip86 DerivationStandard = bip43{kindBip86, purposeBip86}

	// Bip87 is the generic multisig scheme m/87'/coin'/account'.
	Bip87 DerivationStandard = bip43{kindBip87, purposeBip87}

	// LnpBp43 is the identity based scheme
	// m/43'/coin'/identity'/script'/account'.
	LnpBp43 DerivationStandard = lnpbp43{}
)

// Bip43 returns the scheme with the given purpose. Known purposes return
// their specific scheme; BIP-48 needs a script type and is returned in its
// generic form.
func Bip43(purpose uint32) DerivationStandard {
	switch purpose {
	case purposeBip44:
		return Bip44
	case purposeBip45:
		return Bip45
	case purposeBip49:
		return Bip49
	case purposeBip84:
		return Bip84
	case purposeBip86:
		return Bip86
	case purposeBip87:
		return Bip87
	default:
		return bip43{kindGeneric, purpose}
	}
}

func (s bip43) String() string {
	switch s.kind {
	case kindBip48Nested:
		return "BIP-48 (nested)"
	case kindBip48Native:
		return "BIP-48 (native)"
	case kindGeneric:
		return fmt.Sprintf("BIP-43 purpose %d", s.purpose)
	default:
		return fmt.Sprintf("BIP-%d", s.purpose)
	}
}

func (s bip43) Purpose() fn.Option[uint32] {
	return fn.Some(s.purpose)
}

func (s bip43) AccountDepth() fn.Option[uint8] {
	switch s.kind {
	case kindBip45:
		return fn.None[uint8]()
	case kindBip48Nested, kindBip48Native:
		return fn.Some[uint8](4)
	default:
		return fn.Some[uint8](3)
	}
}

func (s bip43) AccountIndexDepth() fn.Option[uint8] {
	if s.kind == kindBip45 {
		return fn.None[uint8]()
	}

	return fn.Some[uint8](2)
}

func (s bip43) CoinTypeDepth() fn.Option[uint8] {
	if s.kind == kindBip45 {
		return fn.None[uint8]()
	}

	return fn.Some[uint8](1)
}

func (s bip43) IsAccountHardened() bool {
	return s.kind != kindBip45
}

func (s bip43) DescriptorClass() fn.Option[descriptor.Class] {
	switch s.kind {
	case kindBip44, kindBip45:
		return fn.Some(descriptor.PreSegwit)
	case kindBip48Nested, kindBip49:
		return fn.Some(descriptor.NestedV0)
	case kindBip48Native, kindBip84:
		return fn.Some(descriptor.SegwitV0)
	case kindBip86:
		return fn.Some(descriptor.TaprootC0)
	default:
		return fn.None[descriptor.Class]()
	}
}

func (s bip43) AccountPath(account uint32, testnet bool) []uint32 {
	if s.kind == kindBip45 {
		return []uint32{hardened(s.purpose)}
	}

	path := []uint32{
		hardened(s.purpose), hardened(coinType(testnet)),
		hardened(account),
	}
	switch s.kind {
	case kindBip48Nested:
		path = append(path, hardened(bip48ScriptNested))
	case kindBip48Native:
		path = append(path, hardened(bip48ScriptNative))
	}

	return path
}

type lnpbp43 struct{}

func (lnpbp43) String() string {
	return "LNPBP-43"
}

func (lnpbp43) Purpose() fn.Option[uint32] {
	return fn.Some[uint32](purposeLnpBp43)
}

func (lnpbp43) AccountDepth() fn.Option[uint8] {
	return fn.Some[uint8](5)
}

func (lnpbp43) AccountIndexDepth() fn.Option[uint8] {
	return fn.Some[uint8](4)
}

func (lnpbp43) CoinTypeDepth() fn.Option[uint8] {
	return fn.Some[uint8](1)
}

func (lnpbp43) IsAccountHardened() bool {
	return true
}

func (lnpbp43) DescriptorClass() fn.Option[descriptor.Class] {
	return fn.None[descriptor.Class]()
}

func (lnpbp43) AccountPath(account uint32, testnet bool) []uint32 {
	return []uint32{
		hardened(purposeLnpBp43), hardened(coinType(testnet)),
		hardened(0), hardened(0), hardened(account),
	}
}

func hardened(index uint32) uint32 {
	return index + hdkeychain.HardenedKeyStart
}

func coinType(testnet bool) uint32 {
	if testnet {
		return coinTypeTestnet
	}

	return coinTypeMainnet
}

// DeduceStandard guesses the derivation standard from the shape of a path.
// The purpose must be hardened and BIP-48 paths must carry a known script
// type.
func DeduceStandard(path []uint32) fn.Option[DerivationStandard] {
	none := fn.None[DerivationStandard]()
	if len(path) == 0 || !descriptor.IsHardened(path[0]) {
		return none
	}

	purpose := path[0] - hdkeychain.HardenedKeyStart
	switch purpose {
	case purposeLnpBp43:
		return fn.Some(LnpBp43)

	case purposeBip48:
		if len(path) < 4 {
			return none
		}

		switch path[3] {
		case hardened(bip48ScriptNested):
			return fn.Some(Bip48Nested)
		case hardened(bip48ScriptNative):
			return fn.Some(Bip48Native)
		default:
			return none
		}

	default:
		return fn.Some(Bip43(purpose))
	}
}

// PathNetwork returns the network implied by the coin type of the path: true
// for testnet, false for mainnet and none for other coin types or paths too
// short to carry one.
func PathNetwork(std DerivationStandard, path []uint32) (fn.Option[bool],
	error) {

	none := fn.None[bool]()

	depth, ok := optionValue(std.CoinTypeDepth())
	if !ok || len(path) <= int(depth) {
		return none, nil
	}

	coin := path[depth]
	if !descriptor.IsHardened(coin) {
		return none, &NonStandardDerivationError{
			Kind:  UnhardenedCoinType,
			Index: coin,
		}
	}

	switch coin - hdkeychain.HardenedKeyStart {
	case coinTypeMainnet:
		return fn.Some(false), nil
	case coinTypeTestnet:
		return fn.Some(true), nil
	default:
		return none, nil
	}
}

// PathAccount returns the account number found in the path, without the
// hardened offset.
func PathAccount(std DerivationStandard, path []uint32) (fn.Option[uint32],
	error) {

	none := fn.None[uint32]()

	depth, ok := optionValue(std.AccountIndexDepth())
	if !ok || len(path) <= int(depth) {
		return none, nil
	}

	index := path[depth]
	if descriptor.IsHardened(index) {
		return fn.Some(index - hdkeychain.HardenedKeyStart), nil
	}
	if std.IsAccountHardened() {
		return none, &NonStandardDerivationError{
			Kind:  UnhardenedAccount,
			Index: index,
		}
	}

	return fn.Some(index), nil
}

// optionValue unpacks an option into the comma-ok form.
func optionValue[T any](o fn.Option[T]) (T, bool) {
	var (
		value T
		ok    bool
	)
	o.WhenSome(func(v T) {
		value, ok = v, true
	})

	return value, ok
}

// standardNames are the command line names of the known standards.
var standardNames = map[string]DerivationStandard{
	"bip44":        Bip44,
	"bip45":        Bip45,
	"bip48-nested": Bip48Nested,
	"bip48-native": Bip48Native,
	"bip49":        Bip49,
	"bip84":        Bip84,
	"bip86":        Bip86,
	"bip87":        Bip87,
	"lnpbp43":      LnpBp43,
}

// ParseStandard returns the standard with the given name, e.g. "bip84" or
// "bip48-native".
func ParseStandard(name string) (DerivationStandard, error) {
	std, ok := standardNames[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown derivation standard %q", name)
	}

	return std, nil
}
