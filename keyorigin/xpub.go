// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keyorigin

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
)

var (
	// ErrUnknownVersion is returned for an extended key whose version is
	// not a known public key version.
	ErrUnknownVersion = errors.New("unknown extended public key version")

	// ErrPrivateKey is returned when an extended private key is given
	// where a public key is expected.
	ErrPrivateKey = errors.New("extended private keys are not accepted")

	// ErrOriginDepth is returned when the origin path of a key does not
	// match the depth of the key.
	ErrOriginDepth = errors.New("origin path length does not match key " +
		"depth")
)

// XpubkeyCore is the deterministic part of an extended public key: the key
// and its chain code. Two keys with the same core derive the same children.
type XpubkeyCore struct {
	PublicKey [33]byte
	ChainCode [32]byte
}

// CoreOf returns the core of an extended public key.
func CoreOf(xpub *hdkeychain.ExtendedKey) (XpubkeyCore, error) {
	var core XpubkeyCore

	pubKey, err := xpub.ECPubKey()
	if err != nil {
		return core, err
	}
	copy(core.PublicKey[:], pubKey.SerializeCompressed())
	copy(core.ChainCode[:], xpub.ChainCode())

	return core, nil
}

// Compare orders cores by public key and then chain code.
func (c XpubkeyCore) Compare(other XpubkeyCore) int {
	if cmp := bytes.Compare(c.PublicKey[:], other.PublicKey[:]); cmp != 0 {
		return cmp
	}

	return bytes.Compare(c.ChainCode[:], other.ChainCode[:])
}

// XpubDescriptor is an extended public key together with its resolved
// origin.
type XpubDescriptor struct {
	// Xpub is the key re-encoded with plain BIP-32 version bytes.
	Xpub *hdkeychain.ExtendedKey

	// Origin is the resolved origin of the key.
	Origin XpubOrigin

	// Path is the derivation path from the master key, when it was given
	// in the "[fp/path]xpub" form.
	Path fn.Option[[]uint32]
}

// ParseXpubDescriptor parses a plain xpub or tpub, a key with any SLIP-132
// version prefix, or either of those preceded by an origin in the
// "[fingerprint/path]" form. When standard is set, the key must be usable
// under it.
func ParseXpubDescriptor(s string,
	standard fn.Option[DerivationStandard]) (*XpubDescriptor, error) {

	s = strings.TrimSpace(s)

	var (
		master = fn.None[descriptor.Fingerprint]()
		path   = fn.None[[]uint32]()
	)
	if strings.HasPrefix(s, "[") {
		origin, rest, found := strings.Cut(s[1:], "]")
		if !found {
			return nil, fmt.Errorf("unterminated key origin in %q", s)
		}

		fpStr, pathStr, _ := strings.Cut(origin, "/")
		fp, err := descriptor.ParseFingerprint(fpStr)
		if err != nil {
			return nil, err
		}
		originPath, err := descriptor.ParsePath(pathStr)
		if err != nil {
			return nil, err
		}

		master = fn.Some(fp)
		path = fn.Some(originPath)
		s = rest
	}

	key, err := hdkeychain.NewKeyFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid extended public key: %w", err)
	}
	if key.IsPrivate() {
		return nil, ErrPrivateKey
	}

	version := KeyVersionFromBytes(key.Version())
	if !version.IsKnown() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVersion, version)
	}
	slip := fn.Some(version)

	var origin *XpubOrigin
	if originPath, ok := optionValue(path); ok {
		if len(originPath) != int(key.Depth()) {
			return nil, fmt.Errorf("%w: path %s for depth %d",
				ErrOriginDepth, descriptor.FormatPath(originPath),
				key.Depth())
		}

		result, err := Deduce(master, originPath, key, slip)
		if err != nil {
			return nil, err
		}
		deduced, err := result.Unpack()
		if err != nil {
			return nil, err
		}
		origin = &deduced

		if std, ok := optionValue(standard); ok {
			got, known := optionValue(origin.Standard)
			if known && got != std {
				return nil, &XpubRequirementError{
					Kind:             StandardMismatch,
					ActualStandard:   got.String(),
					RequiredStandard: std.String(),
				}
			}
			origin.Standard = fn.Some(std)
		}
	} else {
		origin, err = ResolveWith(master, key, standard, slip)
		if err != nil {
			return nil, err
		}
	}

	plainVersion := VersionFor(
		fn.None[DerivationStandard](), origin.Testnet,
	)
	plain, err := key.CloneWithVersion(plainVersion[:])
	if err != nil {
		return nil, err
	}

	return &XpubDescriptor{
		Xpub:   plain,
		Origin: *origin,
		Path:   path,
	}, nil
}

// Core returns the deterministic part of the key.
func (d *XpubDescriptor) Core() (XpubkeyCore, error) {
	return CoreOf(d.Xpub)
}

// Params returns the network parameters matching the key network.
func (d *XpubDescriptor) Params() *chaincfg.Params {
	if d.Origin.Testnet {
		return &chaincfg.TestNet3Params
	}

	return &chaincfg.MainNetParams
}

// Slip132 renders the key with the SLIP-132 version of its standard.
func (d *XpubDescriptor) Slip132() (string, error) {
	version := VersionFor(d.Origin.Standard, d.Origin.Testnet)

	key, err := d.Xpub.CloneWithVersion(version[:])
	if err != nil {
		return "", err
	}

	return key.String(), nil
}

// String renders the key with its origin in descriptor syntax, when the
// origin is known.
func (d *XpubDescriptor) String() string {
	master, ok := optionValue(d.Origin.MasterFingerprint)
	if !ok {
		return d.Xpub.String()
	}

	origin := master.String()
	if path, ok := optionValue(d.Path); ok && len(path) > 0 {
		origin += "/" + descriptor.FormatPath(path)
	}

	return "[" + origin + "]" + d.Xpub.String()
}
