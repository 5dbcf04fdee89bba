// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrPrivateKey is returned when an extended private key is used where only
// public keys are allowed.
var ErrPrivateKey = errors.New("extended private key not allowed in " +
	"descriptor")

// TrackingKey is an account level extended public key together with its
// origin and the terminal derivation used to produce address keys.
type TrackingKey struct {
	// Master is the fingerprint of the master key the account key was
	// derived from, if known.
	Master fn.Option[Fingerprint]

	// AccountPath is the derivation path from the master key to Xpub.
	AccountPath []uint32

	// Xpub is the account extended public key.
	Xpub *hdkeychain.ExtendedKey

	// Terminal is the derivation below Xpub.
	Terminal Terminal
}

// DerivedKey is an address level public key together with its full BIP-32
// origin.
type DerivedKey struct {
	// PubKey is the derived public key.
	PubKey *btcec.PublicKey

	// Fingerprint is the master fingerprint if known, otherwise the
	// fingerprint of the account key.
	Fingerprint Fingerprint

	// Path is the derivation path from the key identified by Fingerprint.
	Path []uint32
}

// NewTrackingKey validates the key material and re-encodes the xpub with the
// plain BIP-32 version bytes of the network, dropping any SLIP-132 prefix.
func NewTrackingKey(master fn.Option[Fingerprint], accountPath []uint32,
	xpub *hdkeychain.ExtendedKey, terminal Terminal,
	net *chaincfg.Params) (*TrackingKey, error) {

	if xpub.IsPrivate() {
		return nil, ErrPrivateKey
	}
	if err := terminal.Validate(); err != nil {
		return nil, err
	}

	plain, err := xpub.CloneWithVersion(net.HDPublicKeyID[:])
	if err != nil {
		return nil, fmt.Errorf("unable to re-encode xpub: %w", err)
	}

	return &TrackingKey{
		Master:      master,
		AccountPath: append([]uint32(nil), accountPath...),
		Xpub:        plain,
		Terminal:    terminal,
	}, nil
}

// String renders the key in descriptor syntax, e.g.
// "[73c5da0a/84h/0h/0h]xpub.../*/*".
func (k *TrackingKey) String() string {
	var b strings.Builder

	k.Master.WhenSome(func(fp Fingerprint) {
		b.WriteByte('[')
		b.WriteString(fp.String())
		if len(k.AccountPath) > 0 {
			b.WriteByte('/')
			b.WriteString(FormatPath(k.AccountPath))
		}
		b.WriteByte(']')
	})

	b.WriteString(k.Xpub.String())
	b.WriteString(k.Terminal.String())

	return b.String()
}

// Derive returns the public key for the given change and address index.
func (k *TrackingKey) Derive(change, index uint32) (*DerivedKey, error) {
	terminal, err := k.Terminal.Fill(change, index)
	if err != nil {
		return nil, err
	}

	key := k.Xpub
	for _, step := range terminal {
		key, err = key.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("unable to derive %s: %w",
				FormatIndex(step), err)
		}
	}

	pubKey, err := key.ECPubKey()
	if err != nil {
		return nil, err
	}

	derived := &DerivedKey{PubKey: pubKey}
	if fp, ok := k.masterFingerprint(); ok {
		derived.Fingerprint = fp
		derived.Path = append(
			append([]uint32(nil), k.AccountPath...), terminal...,
		)

		return derived, nil
	}

	accountKey, err := k.Xpub.ECPubKey()
	if err != nil {
		return nil, err
	}
	derived.Fingerprint = FingerprintOf(accountKey)
	derived.Path = terminal

	return derived, nil
}

func (k *TrackingKey) masterFingerprint() (Fingerprint, bool) {
	var (
		fp Fingerprint
		ok bool
	)
	k.Master.WhenSome(func(master Fingerprint) {
		fp, ok = master, true
	})

	return fp, ok
}
