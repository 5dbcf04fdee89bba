// Copyright (c) 2020 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/mycitadel/mcwallet/descriptor"
)

const (
	// psbtProprietaryType is the key type of proprietary PSBT entries.
	psbtProprietaryType = 0xfc

	// psbtKeyPrefix is the identifier of the proprietary entries written
	// by this wallet.
	psbtKeyPrefix = "MyCitadel"

	// psbtSignerNameSubtype is the subtype of the global entry naming the
	// signer with a master fingerprint.
	psbtSignerNameSubtype = 0
)

// SignerPaths maps the master fingerprint of every signer with a known
// master to the derivation path of its account key.
func SignerPaths(settings *WalletSettings) map[descriptor.Fingerprint][]uint32 {
	paths := make(map[descriptor.Fingerprint][]uint32, len(settings.signers))
	for _, signer := range settings.signers {
		signer.MasterFingerprint().WhenSome(func(fp descriptor.Fingerprint) {
			paths[fp] = append([]uint32(nil), signer.Origin...)
		})
	}

	return paths
}

// bip32Derivations returns the BIP-32 derivation of every key.
func bip32Derivations(keys []*descriptor.DerivedKey) []*psbt.Bip32Derivation {
	derivations := make([]*psbt.Bip32Derivation, 0, len(keys))
	for _, key := range keys {
		derivations = append(derivations, &psbt.Bip32Derivation{
			PubKey:               key.PubKey.SerializeCompressed(),
			MasterKeyFingerprint: key.Fingerprint.Uint32(),
			Bip32Path:            append([]uint32(nil), key.Path...),
		})
	}

	return derivations
}

// taprootDerivations returns the taproot derivation of every key together
// with the hashes of the leaves using it. The internal key uses no leaf.
func taprootDerivations(
	derived *descriptor.Derived) []*psbt.TaprootBip32Derivation {

	derivations := make(
		[]*psbt.TaprootBip32Derivation, 0, len(derived.Keys),
	)
	for _, key := range derived.Keys {
		var leafHashes [][]byte
		for _, leaf := range derived.TapLeaves {
			for _, leafKey := range leaf.Keys {
				if leafKey != key {
					continue
				}
				leafHashes = append(
					leafHashes, bytes.Clone(leaf.LeafHash[:]),
				)

				break
			}
		}

		derivations = append(derivations, &psbt.TaprootBip32Derivation{
			XOnlyPubKey:          schnorr.SerializePubKey(key.PubKey),
			LeafHashes:           leafHashes,
			MasterKeyFingerprint: key.Fingerprint.Uint32(),
			Bip32Path:            append([]uint32(nil), key.Path...),
		})
	}

	return derivations
}

// DecoratePsbtInput adds what an offline signer needs to sign the input
// spending an output of the wallet: the key derivations, the redeem and
// witness scripts and for taproot the internal key, merkle root and leaf
// scripts.
func DecoratePsbtInput(in *psbt.PInput, derived *descriptor.Derived) {
	if derived.InternalKey == nil {
		in.SighashType = txscript.SigHashAll
		in.Bip32Derivation = bip32Derivations(derived.Keys)
		in.RedeemScript = derived.RedeemScript
		in.WitnessScript = derived.WitnessScript

		return
	}

	in.SighashType = txscript.SigHashDefault
	in.TaprootBip32Derivation = taprootDerivations(derived)
	in.TaprootInternalKey = schnorr.SerializePubKey(derived.InternalKey)
	in.TaprootMerkleRoot = derived.MerkleRoot

	in.TaprootLeafScript = make(
		[]*psbt.TaprootTapLeafScript, 0, len(derived.TapLeaves),
	)
	for _, leaf := range derived.TapLeaves {
		in.TaprootLeafScript = append(in.TaprootLeafScript,
			&psbt.TaprootTapLeafScript{
				ControlBlock: leaf.ControlBlock,
				Script:       leaf.Script,
				LeafVersion:  leaf.LeafVersion,
			},
		)
	}
}

// DecoratePsbtOutput adds the key derivations and scripts of a wallet output,
// letting signers recognize it as change.
func DecoratePsbtOutput(out *psbt.POutput, derived *descriptor.Derived) {
	if derived.InternalKey == nil {
		out.Bip32Derivation = bip32Derivations(derived.Keys)
		out.RedeemScript = derived.RedeemScript
		out.WitnessScript = derived.WitnessScript

		return
	}

	out.TaprootBip32Derivation = taprootDerivations(derived)
	out.TaprootInternalKey = schnorr.SerializePubKey(derived.InternalKey)
}

// signerNameKey returns the key of the proprietary global entry holding the
// name of the signer with the master fingerprint.
func signerNameKey(fp descriptor.Fingerprint) []byte {
	var b bytes.Buffer
	b.WriteByte(psbtProprietaryType)

	// Writes to a bytes.Buffer do not fail.
	_ = wire.WriteVarBytes(&b, 0, []byte(psbtKeyPrefix))
	_ = wire.WriteVarInt(&b, 0, psbtSignerNameSubtype)
	b.Write(fp[:])

	return b.Bytes()
}

// SetSignerName records the name of the signer with the master fingerprint
// in the packet, replacing a previous name.
func SetSignerName(packet *psbt.Packet, fp descriptor.Fingerprint,
	name string) {

	key := signerNameKey(fp)
	for _, entry := range packet.Unknowns {
		if bytes.Equal(entry.Key, key) {
			entry.Value = []byte(name)
			return
		}
	}

	packet.Unknowns = append(packet.Unknowns, &psbt.Unknown{
		Key:   key,
		Value: []byte(name),
	})
}

// SignerName returns the name of the signer with the master fingerprint if
// the packet records a valid one.
func SignerName(packet *psbt.Packet, fp descriptor.Fingerprint) (string,
	bool) {

	key := signerNameKey(fp)
	for _, entry := range packet.Unknowns {
		if !bytes.Equal(entry.Key, key) {
			continue
		}
		if !utf8.Valid(entry.Value) {
			return "", false
		}

		return string(entry.Value), true
	}

	return "", false
}

// PsbtPrevOutputFetcher returns a txscript.PrevOutFetcher built from the UTXO
// information in a PSBT packet.
func PsbtPrevOutputFetcher(packet *psbt.Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range packet.UnsignedTx.TxIn {
		in := packet.Inputs[idx]

		switch {
		case in.NonWitnessUtxo != nil:
			prevIndex := txIn.PreviousOutPoint.Index
			if int(prevIndex) >= len(in.NonWitnessUtxo.TxOut) {
				continue
			}
			fetcher.AddPrevOut(
				txIn.PreviousOutPoint,
				in.NonWitnessUtxo.TxOut[prevIndex],
			)

		case in.WitnessUtxo != nil:
			fetcher.AddPrevOut(txIn.PreviousOutPoint, in.WitnessUtxo)
		}
	}

	return fetcher
}
