// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
)

// Ownership tells whether the keys of a signer are controlled by the wallet
// owner.
type Ownership uint8

const (
	// Mine is a signer held by the wallet owner.
	Mine Ownership = iota

	// External is a signer held by a cosigner.
	External
)

// String returns the name of the ownership.
func (o Ownership) String() string {
	switch o {
	case Mine:
		return "mine"
	case External:
		return "external"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
}

// Signer is a participant of a wallet identified by its account level
// extended public key. Two signers are the same signer when their keys have
// the same core.
type Signer struct {
	// Fingerprint is the master key fingerprint, zero when unknown.
	Fingerprint descriptor.Fingerprint

	// Origin is the derivation path of Xpub from the master key.
	Origin []uint32

	// Account is the account number, without the hardened offset.
	Account fn.Option[uint32]

	// Xpub is the account level extended public key.
	Xpub *hdkeychain.ExtendedKey

	// Device is the type of the hardware device holding the key, empty
	// for keys not held by a known device.
	Device string

	// Name is a human readable name of the signer.
	Name string

	// Ownership tells who controls the key.
	Ownership Ownership
}

// SignerWithXpub returns an external signer for a bare extended public key.
// The origin is known for master and first level keys and is otherwise
// assumed to follow the standard, with an unknown master fingerprint.
func SignerWithXpub(xpub *hdkeychain.ExtendedKey,
	std keyorigin.DerivationStandard, network Network) (Signer, error) {

	var (
		fp     descriptor.Fingerprint
		origin []uint32
	)
	switch xpub.Depth() {
	case 0:
		pubKey, err := xpub.ECPubKey()
		if err != nil {
			return Signer{}, err
		}
		fp = descriptor.FingerprintOf(pubKey)

	case 1:
		binary.BigEndian.PutUint32(fp[:], xpub.ParentFingerprint())
		origin = []uint32{xpub.ChildIndex()}

	default:
		account := xpub.ChildIndex()
		if descriptor.IsHardened(account) {
			account -= hdkeychain.HardenedKeyStart
		}
		origin = std.AccountPath(account, network.IsTestnet())
	}

	return Signer{
		Fingerprint: fp,
		Origin:      origin,
		Account:     keyorigin.OriginFormatOf(origin).Account(),
		Xpub:        xpub,
		Ownership:   External,
	}, nil
}

// SignerWithDevice returns a signer held by the hardware device, using its
// default account.
func SignerWithDevice(device HardwareDevice, std keyorigin.DerivationStandard,
	network Network) Signer {

	return Signer{
		Fingerprint: device.Fingerprint,
		Origin: std.AccountPath(
			device.DefaultAccount, network.IsTestnet(),
		),
		Account:   fn.Some(device.DefaultAccount),
		Xpub:      device.DefaultXpub,
		Device:    device.DeviceType,
		Name:      device.Model,
		Ownership: Mine,
	}
}

// SignerFromDescriptor returns an external signer for a parsed key. The
// origin path is taken from the key when given and otherwise derived from
// its standard and account.
func SignerFromDescriptor(d *keyorigin.XpubDescriptor, name string) Signer {
	signer := Signer{
		Account:   d.Origin.Account,
		Xpub:      d.Xpub,
		Name:      name,
		Ownership: External,
	}
	d.Origin.MasterFingerprint.WhenSome(func(fp descriptor.Fingerprint) {
		signer.Fingerprint = fp
	})

	d.Path.WhenSome(func(path []uint32) {
		signer.Origin = path
	})
	if d.Path.IsNone() {
		d.Origin.Standard.WhenSome(func(std keyorigin.DerivationStandard) {
			d.Origin.Account.WhenSome(func(account uint32) {
				signer.Origin = std.AccountPath(
					account, d.Origin.Testnet,
				)
			})
		})
	}

	return signer
}

// Core returns the core of the signer key.
func (s *Signer) Core() (keyorigin.XpubkeyCore, error) {
	return keyorigin.CoreOf(s.Xpub)
}

// MasterFingerprint returns the master fingerprint if it is known.
func (s *Signer) MasterFingerprint() fn.Option[descriptor.Fingerprint] {
	if s.Fingerprint == (descriptor.Fingerprint{}) {
		return fn.None[descriptor.Fingerprint]()
	}

	return fn.Some(s.Fingerprint)
}

// OriginFormat classifies the origin path of the signer.
func (s *Signer) OriginFormat() keyorigin.OriginFormat {
	return keyorigin.OriginFormatOf(s.Origin)
}

// AccountString renders the account as a hardened index, or "n/a".
func (s *Signer) AccountString() string {
	return fn.MapOption(func(account uint32) string {
		return descriptor.FormatIndex(
			account + hdkeychain.HardenedKeyStart,
		)
	})(s.Account).UnwrapOr("n/a")
}

// TrackingKey returns the key of the signer as used in descriptors.
func (s *Signer) TrackingKey(terminal descriptor.Terminal,
	net *chaincfg.Params) (*descriptor.TrackingKey, error) {

	return descriptor.NewTrackingKey(
		s.MasterFingerprint(), s.Origin, s.Xpub, terminal, net,
	)
}

// String describes the signer.
func (s *Signer) String() string {
	name := s.Name
	if name == "" {
		name = "unnamed"
	}

	return fmt.Sprintf("%s [%v/%s] %v", name, s.Fingerprint,
		descriptor.FormatPath(s.Origin), s.Ownership)
}
