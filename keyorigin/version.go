// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyorigin

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SLIP-132 versions of extended public keys that waddrmgr does not define.
const (
	versionMainNetBip48Nested waddrmgr.HDVersion = 0x0295b43f // Ypub
	versionTestNetBip48Nested waddrmgr.HDVersion = 0x024289ef // Upub
	versionMainNetBip48Native waddrmgr.HDVersion = 0x02aa7ed3 // Zpub
	versionTestNetBip48Native waddrmgr.HDVersion = 0x02575483 // Vpub
)

type versionInfo struct {
	testnet     bool
	application fn.Option[DerivationStandard]
}

// slip132Versions maps every known public key version to its network and
// application. The plain xpub and tpub versions carry no application.
var slip132Versions = map[waddrmgr.HDVersion]versionInfo{
	waddrmgr.HDVersionMainNetBIP0044: {
		testnet:     false,
		application: fn.None[DerivationStandard](),
	},
	waddrmgr.HDVersionTestNetBIP0044: {
		testnet:     true,
		application: fn.None[DerivationStandard](),
	},
	waddrmgr.HDVersionSimNetBIP0044: {
		testnet:     true,
		application: fn.None[DerivationStandard](),
	},
	waddrmgr.HDVersionMainNetBIP0049: {
		testnet:     false,
		application: fn.Some(Bip49),
	},
	waddrmgr.HDVersionTestNetBIP0049: {
		testnet:     true,
		application: fn.Some(Bip49),
	},
	waddrmgr.HDVersionMainNetBIP0084: {
		testnet:     false,
		application: fn.Some(Bip84),
	},
	waddrmgr.HDVersionTestNetBIP0084: {
		testnet:     true,
		application: fn.Some(Bip84),
	},
	versionMainNetBip48Nested: {
		testnet:     false,
		application: fn.Some(Bip48Nested),
	},
	versionTestNetBip48Nested: {
		testnet:     true,
		application: fn.Some(Bip48Nested),
	},
	versionMainNetBip48Native: {
		testnet:     false,
		application: fn.Some(Bip48Native),
	},
	versionTestNetBip48Native: {
		testnet:     true,
		application: fn.Some(Bip48Native),
	},
}

// KeyVersion is the four byte version prefix of a serialized extended public
// key.
type KeyVersion [4]byte

// KeyVersionFromBytes copies a version from its serialized form.
func KeyVersionFromBytes(b []byte) KeyVersion {
	var v KeyVersion
	copy(v[:], b)

	return v
}

func (v KeyVersion) hdVersion() waddrmgr.HDVersion {
	return waddrmgr.HDVersion(binary.BigEndian.Uint32(v[:]))
}

// String returns the version as hex.
func (v KeyVersion) String() string {
	return hex.EncodeToString(v[:])
}

// IsKnown reports whether the version is a known public key version.
func (v KeyVersion) IsKnown() bool {
	_, ok := slip132Versions[v.hdVersion()]
	return ok
}

// Network returns whether the version belongs to a test network, or none
// for unknown versions.
func (v KeyVersion) Network() fn.Option[bool] {
	info, ok := slip132Versions[v.hdVersion()]
	if !ok {
		return fn.None[bool]()
	}

	return fn.Some(info.testnet)
}

// Application returns the derivation standard implied by the version.
func (v KeyVersion) Application() fn.Option[DerivationStandard] {
	info, ok := slip132Versions[v.hdVersion()]
	if !ok {
		return fn.None[DerivationStandard]()
	}

	return info.application
}

// VersionFor returns the public key version of the standard on the given
// network. Standards without a SLIP-132 version use plain xpub or tpub.
func VersionFor(std fn.Option[DerivationStandard], testnet bool) KeyVersion {
	want := fn.MapOption(func(s DerivationStandard) string {
		return s.String()
	})(std)

	for version, info := range slip132Versions {
		if info.testnet != testnet ||
			version == waddrmgr.HDVersionSimNetBIP0044 {

			continue
		}

		got := fn.MapOption(func(s DerivationStandard) string {
			return s.String()
		})(info.application)
		if got == want {
			var v KeyVersion
			binary.BigEndian.PutUint32(v[:], uint32(version))

			return v
		}
	}

	var v KeyVersion
	plain := waddrmgr.HDVersionMainNetBIP0044
	if testnet {
		plain = waddrmgr.HDVersionTestNetBIP0044
	}
	binary.BigEndian.PutUint32(v[:], uint32(plain))

	return v
}
