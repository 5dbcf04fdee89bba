// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
)

var (
	// ErrNotPrivate is returned when a signer is created from a public
	// extended key.
	ErrNotPrivate = errors.New("extended key is not private")

	// ErrAccountUnknown is returned for a derivation from a master key
	// the signer does not hold.
	ErrAccountUnknown = errors.New("unknown signing account")

	// ErrKeyMismatch is returned when a derived key differs from the key
	// the derivation is recorded for.
	ErrKeyMismatch = errors.New("derived key does not match derivation")
)

// XprivSigner signs PSBT inputs with keys derived from an extended private
// key. The key is either a master key or an account key with a known master
// fingerprint.
type XprivSigner struct {
	xpriv    *hdkeychain.ExtendedKey
	ownFP    descriptor.Fingerprint
	masterFP descriptor.Fingerprint
}

// NewXprivSigner returns a signer for the extended private key. For keys
// below the master key the master fingerprint must be given.
func NewXprivSigner(xpriv *hdkeychain.ExtendedKey,
	master fn.Option[descriptor.Fingerprint]) (*XprivSigner, error) {

	if !xpriv.IsPrivate() {
		return nil, ErrNotPrivate
	}

	pubKey, err := xpriv.ECPubKey()
	if err != nil {
		return nil, err
	}
	ownFP := descriptor.FingerprintOf(pubKey)

	masterFP := master.UnwrapOr(ownFP)
	if xpriv.Depth() != 0 && master.IsNone() {
		return nil, fmt.Errorf("%w: master fingerprint of depth %d key "+
			"not given", ErrAccountUnknown, xpriv.Depth())
	}

	return &XprivSigner{xpriv: xpriv, ownFP: ownFP, masterFP: masterFP}, nil
}

// MasterFingerprint returns the fingerprint of the master key of the signer.
func (s *XprivSigner) MasterFingerprint() descriptor.Fingerprint {
	return s.masterFP
}

// DeriveKey returns the private key for a derivation recorded from the
// fingerprint. Derivations from the signer key itself are followed as given.
// For derivations from the master key the hardened steps leading to the
// account key are skipped.
func (s *XprivSigner) DeriveKey(fp descriptor.Fingerprint,
	path []uint32) (*btcec.PrivateKey, error) {

	switch {
	case fp == s.ownFP:

	case fp == s.masterFP:
		for len(path) > 0 && descriptor.IsHardened(path[0]) {
			path = path[1:]
		}

	default:
		return nil, fmt.Errorf("%w: %v", ErrAccountUnknown, fp)
	}

	key := s.xpriv
	for _, index := range path {
		var err error
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive %s: %w",
				descriptor.FormatIndex(index), err)
		}
	}

	return key.ECPrivKey()
}

// Sign adds a signature for every input key the signer holds and returns the
// number of signatures added. Keys of other signers are skipped.
func (s *XprivSigner) Sign(packet *psbt.Packet) (int, error) {
	fetcher := PsbtPrevOutputFetcher(packet)
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)

	var count int
	for idx, txIn := range packet.UnsignedTx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		if prevOut == nil {
			log.Debugf("Skipping input %d without UTXO", idx)
			continue
		}

		in := &packet.Inputs[idx]

		var (
			n   int
			err error
		)
		if len(in.TaprootBip32Derivation) > 0 {
			n, err = s.signTaproot(
				packet.UnsignedTx, sigHashes, idx, in, prevOut,
			)
		} else {
			n, err = s.signEcdsa(
				packet.UnsignedTx, sigHashes, idx, in, prevOut,
			)
		}
		if err != nil {
			return count, fmt.Errorf("input %d: %w", idx, err)
		}
		count += n
	}

	log.Infof("Added %d signatures with signer %v", count, s.masterFP)

	return count, nil
}

// keyFor derives the key of a recorded derivation, returning nil for
// derivations of other signers.
func (s *XprivSigner) keyFor(fp uint32,
	path []uint32) (*btcec.PrivateKey, error) {

	key, err := s.DeriveKey(descriptor.FingerprintFromUint32(fp), path)
	if errors.Is(err, ErrAccountUnknown) {
		return nil, nil
	}

	return key, err
}

func (s *XprivSigner) signEcdsa(tx *wire.MsgTx,
	sigHashes *txscript.TxSigHashes, idx int, in *psbt.PInput,
	prevOut *wire.TxOut) (int, error) {

	hashType := in.SighashType
	if hashType == 0 {
		hashType = txscript.SigHashAll
	}

	subScript := prevOut.PkScript
	if in.RedeemScript != nil {
		subScript = in.RedeemScript
	}
	isWitness := txscript.IsWitnessProgram(subScript)
	if in.WitnessScript != nil {
		subScript = in.WitnessScript
	}

	var count int
	for _, derivation := range in.Bip32Derivation {
		key, err := s.keyFor(
			derivation.MasterKeyFingerprint, derivation.Bip32Path,
		)
		if err != nil {
			return count, err
		}
		if key == nil {
			continue
		}

		pubKey := key.PubKey().SerializeCompressed()
		if !bytes.Equal(pubKey, derivation.PubKey) {
			return count, ErrKeyMismatch
		}

		var sig []byte
		if isWitness {
			sig, err = txscript.RawTxInWitnessSignature(
				tx, sigHashes, idx, prevOut.Value, subScript,
				hashType, key,
			)
		} else {
			sig, err = txscript.RawTxInSignature(
				tx, idx, subScript, hashType, key,
			)
		}
		if err != nil {
			return count, err
		}

		in.PartialSigs = append(in.PartialSigs, &psbt.PartialSig{
			PubKey:    pubKey,
			Signature: sig,
		})
		count++
	}

	return count, nil
}

func (s *XprivSigner) signTaproot(tx *wire.MsgTx,
	sigHashes *txscript.TxSigHashes, idx int, in *psbt.PInput,
	prevOut *wire.TxOut) (int, error) {

	hashType := in.SighashType

	var count int
	for _, derivation := range in.TaprootBip32Derivation {
		key, err := s.keyFor(
			derivation.MasterKeyFingerprint, derivation.Bip32Path,
		)
		if err != nil {
			return count, err
		}
		if key == nil {
			continue
		}

		xOnly := schnorr.SerializePubKey(key.PubKey())
		if !bytes.Equal(xOnly, derivation.XOnlyPubKey) {
			return count, ErrKeyMismatch
		}

		// A key without leaves is the internal key.
		if len(derivation.LeafHashes) == 0 {
			sig, err := txscript.RawTxInTaprootSignature(
				tx, sigHashes, idx, prevOut.Value,
				prevOut.PkScript, in.TaprootMerkleRoot,
				hashType, key,
			)
			if err != nil {
				return count, err
			}
			in.TaprootKeySpendSig = sig
			count++

			continue
		}

		for _, leafScript := range in.TaprootLeafScript {
			leaf := txscript.NewTapLeaf(
				leafScript.LeafVersion, leafScript.Script,
			)
			leafHash := leaf.TapHash()
			if !containsHash(derivation.LeafHashes, leafHash[:]) {
				continue
			}

			sig, err := txscript.RawTxInTapscriptSignature(
				tx, sigHashes, idx, prevOut.Value,
				prevOut.PkScript, leaf, hashType, key,
			)
			if err != nil {
				return count, err
			}

			in.TaprootScriptSpendSig = append(
				in.TaprootScriptSpendSig,
				&psbt.TaprootScriptSpendSig{
					XOnlyPubKey: xOnly,
					LeafHash:    leafHash[:],
					Signature:   sig,
					SigHash:     hashType,
				},
			)
			count++
		}
	}

	return count, nil
}

func containsHash(hashes [][]byte, hash []byte) bool {
	for _, h := range hashes {
		if bytes.Equal(h, hash) {
			return true
		}
	}

	return false
}
