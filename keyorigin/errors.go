// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyorigin

import "fmt"

// RequirementKind identifies the kind of XpubRequirementError.
type RequirementKind uint8

const (
	// StandardMismatch indicates that the SLIP-132 version of the key
	// implies a derivation standard different from the required one.
	StandardMismatch RequirementKind = iota

	// ShallowKey indicates a key above the account level of its
	// standard.
	ShallowKey

	// NetworkMismatch indicates that the network implied by the SLIP-132
	// version differs from the network of the key or its path.
	NetworkMismatch

	// UnhardenedAccountKey indicates an account level key derived at an
	// unhardened index.
	UnhardenedAccountKey
)

// String returns the name of the kind.
func (k RequirementKind) String() string {
	switch k {
	case StandardMismatch:
		return "StandardMismatch"
	case ShallowKey:
		return "ShallowKey"
	case NetworkMismatch:
		return "NetworkMismatch"
	case UnhardenedAccountKey:
		return "UnhardenedAccountKey"
	default:
		return fmt.Sprintf("RequirementKind(%d)", uint8(k))
	}
}

// XpubRequirementError is returned when an extended public key is not
// consistent with the metadata supplied with it. These errors are caused by
// user input and must be reported.
type XpubRequirementError struct {
	Kind RequirementKind

	// ActualStandard and RequiredStandard are set for StandardMismatch.
	ActualStandard   string
	RequiredStandard string

	// Standard, RequiredDepth and ActualDepth are set for ShallowKey.
	// Standard is also set for UnhardenedAccountKey.
	Standard      string
	RequiredDepth uint8
	ActualDepth   uint8

	// SlipTestnet and KeyTestnet are set for NetworkMismatch.
	SlipTestnet bool
	KeyTestnet  bool

	// Index is the unhardened child index of UnhardenedAccountKey.
	Index uint32
}

func networkName(testnet bool) string {
	if testnet {
		return "testnet"
	}

	return "mainnet"
}

// Error implements the error interface.
func (e *XpubRequirementError) Error() string {
	switch e.Kind {
	case StandardMismatch:
		return fmt.Sprintf("the provided extended public key can't be "+
			"used under the required derivation standard: the key "+
			"is suitable for %s derivations, while a key for %s is "+
			"needed", e.ActualStandard, e.RequiredStandard)

	case ShallowKey:
		return fmt.Sprintf("the provided extended public key has "+
			"derivation depth %d, which is less than the depth %d "+
			"of account level keys according to %s", e.ActualDepth,
			e.RequiredDepth, e.Standard)

	case NetworkMismatch:
		return fmt.Sprintf("network of the extended public key (%s) "+
			"does not match the network of its SLIP-132 version "+
			"(%s)", networkName(e.KeyTestnet),
			networkName(e.SlipTestnet))

	case UnhardenedAccountKey:
		return fmt.Sprintf("the key is an account key according to "+
			"%s, but it uses the unhardened derivation index %d",
			e.Standard, e.Index)

	default:
		return "invalid extended public key"
	}
}

// NonStandardKind identifies the kind of NonStandardDerivationError.
type NonStandardKind uint8

const (
	// UnhardenedAccount indicates an unhardened account index in a path
	// whose standard requires it to be hardened.
	UnhardenedAccount NonStandardKind = iota

	// UnhardenedCoinType indicates an unhardened coin type.
	UnhardenedCoinType
)

// NonStandardDerivationError is returned when a derivation path does not
// follow the standard it was recognized as. It means the caller built an
// inconsistent request.
type NonStandardDerivationError struct {
	Kind  NonStandardKind
	Index uint32
}

// Error implements the error interface.
func (e *NonStandardDerivationError) Error() string {
	switch e.Kind {
	case UnhardenedAccount:
		return fmt.Sprintf("non-standard derivation path: account key "+
			"derived at unhardened index %d", e.Index)
	default:
		return fmt.Sprintf("non-standard derivation path: coin type "+
			"is the unhardened index %d", e.Index)
	}
}
