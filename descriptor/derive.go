// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/mycitadel/mcwallet/miniscript"
	"github.com/mycitadel/mcwallet/taptree"
)

// AddressSource is an address together with the change and index it was
// derived for.
type AddressSource struct {
	// Address is the derived address.
	Address btcutil.Address

	// Change is the value of the change wildcard.
	Change uint32

	// Index is the value of the index wildcard.
	Index uint32
}

// String returns the encoded address.
func (a AddressSource) String() string {
	return a.Address.EncodeAddress()
}

// TapLeaf is a derived tapscript leaf.
type TapLeaf struct {
	// Script is the leaf script.
	Script []byte

	// LeafVersion is the tapscript leaf version.
	LeafVersion txscript.TapscriptLeafVersion

	// LeafHash is the tagged hash of the leaf.
	LeafHash chainhash.Hash

	// ControlBlock is the serialized control block spending the leaf.
	ControlBlock []byte

	// Keys are the keys used by the leaf script.
	Keys []*DerivedKey
}

// Derived holds everything needed to receive to and spend from the output of
// a descriptor at one (change, index) position.
type Derived struct {
	// Source is the address and its position.
	Source AddressSource

	// PkScript is the output script.
	PkScript []byte

	// RedeemScript is the P2SH redeem script, if any.
	RedeemScript []byte

	// WitnessScript is the P2WSH witness script, if any.
	WitnessScript []byte

	// InternalKey is the taproot internal key, if any.
	InternalKey *btcec.PublicKey

	// MerkleRoot is the taproot script tree root, if any.
	MerkleRoot []byte

	// TapLeaves are the taproot script leaves, if any.
	TapLeaves []TapLeaf

	// Keys are all distinct derived keys of the output, the taproot
	// internal key first.
	Keys []*DerivedKey
}

// keyCache derives every tracking key at most once per position.
type keyCache struct {
	change, index uint32
	derived       map[*TrackingKey]*DerivedKey
	order         []*DerivedKey
}

func newKeyCache(change, index uint32) *keyCache {
	return &keyCache{
		change:  change,
		index:   index,
		derived: make(map[*TrackingKey]*DerivedKey),
	}
}

func (c *keyCache) derive(key *TrackingKey) (*DerivedKey, error) {
	if derived, ok := c.derived[key]; ok {
		return derived, nil
	}

	derived, err := key.Derive(c.change, c.index)
	if err != nil {
		return nil, err
	}
	c.derived[key] = derived
	c.order = append(c.order, derived)

	return derived, nil
}

func (c *keyCache) resolver() miniscript.KeyResolver {
	return func(key miniscript.Key) (*btcec.PublicKey, error) {
		trackingKey, ok := key.(*TrackingKey)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnknownKey, key)
		}

		derived, err := c.derive(trackingKey)
		if err != nil {
			return nil, err
		}

		return derived.PubKey, nil
	}
}

// Derive computes the output of the descriptor at the given position.
func (d *Descriptor) Derive(net *chaincfg.Params, change,
	index uint32) (*Derived, error) {

	cache := newKeyCache(change, index)
	out := &Derived{
		Source: AddressSource{Change: change, Index: index},
	}

	var (
		addr btcutil.Address
		err  error
	)
	switch d.shape {
	case ShapePkh, ShapeWpkh, ShapeShWpkh, ShapeTrKey:
		addr, err = d.deriveSingleSig(net, cache, out)

	case ShapeSh, ShapeWsh, ShapeShWsh:
		addr, err = d.deriveScript(net, cache, out)

	case ShapeTrTree:
		addr, err = d.deriveTaproot(net, cache, out)

	default:
		err = fmt.Errorf("unknown descriptor shape %d", d.shape)
	}
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	out.Source.Address = addr
	out.PkScript = pkScript
	out.Keys = cache.order

	return out, nil
}

func (d *Descriptor) deriveSingleSig(net *chaincfg.Params, cache *keyCache,
	out *Derived) (btcutil.Address, error) {

	key, err := cache.derive(d.key)
	if err != nil {
		return nil, err
	}
	pubKeyHash := btcutil.Hash160(key.PubKey.SerializeCompressed())

	switch d.shape {
	case ShapePkh:
		return btcutil.NewAddressPubKeyHash(pubKeyHash, net)

	case ShapeWpkh:
		return btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, net)

	case ShapeShWpkh:
		witnessAddr, err := btcutil.NewAddressWitnessPubKeyHash(
			pubKeyHash, net,
		)
		if err != nil {
			return nil, err
		}
		out.RedeemScript, err = txscript.PayToAddrScript(witnessAddr)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(out.RedeemScript, net)

	default:
		out.InternalKey = key.PubKey
		outputKey := txscript.ComputeTaprootKeyNoScript(key.PubKey)

		return btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), net,
		)
	}
}

func (d *Descriptor) deriveScript(net *chaincfg.Params, cache *keyCache,
	out *Derived) (btcutil.Address, error) {

	script, err := d.script.Script(d.class.ScriptContext(), cache.resolver())
	if err != nil {
		return nil, err
	}

	if d.shape == ShapeSh {
		out.RedeemScript = script
		return btcutil.NewAddressScriptHash(script, net)
	}

	out.WitnessScript = script
	scriptHash := sha256.Sum256(script)
	witnessAddr, err := btcutil.NewAddressWitnessScriptHash(
		scriptHash[:], net,
	)
	if err != nil {
		return nil, err
	}
	if d.shape == ShapeWsh {
		return witnessAddr, nil
	}

	out.RedeemScript, err = txscript.PayToAddrScript(witnessAddr)
	if err != nil {
		return nil, err
	}

	return btcutil.NewAddressScriptHash(out.RedeemScript, net)
}

func (d *Descriptor) deriveTaproot(net *chaincfg.Params, cache *keyCache,
	out *Derived) (btcutil.Address, error) {

	internal, err := cache.derive(d.key)
	if err != nil {
		return nil, err
	}

	var leafKeys [][]*DerivedKey
	scripts, err := taptree.Map(d.tree, func(f *miniscript.Fragment) (
		[]byte, error) {

		var keys []*DerivedKey
		for _, key := range f.Keys() {
			derived, err := cache.derive(key.(*TrackingKey))
			if err != nil {
				return nil, err
			}
			keys = append(keys, derived)
		}
		leafKeys = append(leafKeys, keys)

		return f.Script(miniscript.Tap, cache.resolver())
	})
	if err != nil {
		return nil, err
	}

	commitment := taptree.Commit(scripts)
	root := commitment.RootHash()

	out.InternalKey = internal.PubKey
	out.MerkleRoot = root[:]
	for i, leaf := range commitment.Leaves {
		ctrlBlock := commitment.ControlBlock(internal.PubKey, i)
		ctrlBytes, err := ctrlBlock.ToBytes()
		if err != nil {
			return nil, err
		}

		out.TapLeaves = append(out.TapLeaves, TapLeaf{
			Script:       leaf.Leaf.Script,
			LeafVersion:  leaf.Leaf.LeafVersion,
			LeafHash:     leaf.Leaf.TapHash(),
			ControlBlock: ctrlBytes,
			Keys:         leafKeys[i],
		})
	}

	outputKey := commitment.OutputKey(internal.PubKey)

	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), net)
}

// Address returns the address at the given position.
func (d *Descriptor) Address(net *chaincfg.Params, change,
	index uint32) (AddressSource, error) {

	derived, err := d.Derive(net, change, index)
	if err != nil {
		return AddressSource{}, err
	}

	return derived.Source, nil
}

// ScriptPubKey returns the output script at the given position.
func (d *Descriptor) ScriptPubKey(net *chaincfg.Params, change,
	index uint32) ([]byte, error) {

	derived, err := d.Derive(net, change, index)
	if err != nil {
		return nil, err
	}

	return derived.PkScript, nil
}

// MinInputVSize returns the minimum virtual size of an input spending an
// output of a single key descriptor. Script descriptors have no fixed input
// size, for them false is returned.
func (d *Descriptor) MinInputVSize(net *chaincfg.Params) (int, bool) {
	switch d.shape {
	case ShapePkh, ShapeWpkh, ShapeShWpkh, ShapeTrKey:
	default:
		return 0, false
	}

	pkScript, err := d.ScriptPubKey(net, 0, 0)
	if err != nil {
		return 0, false
	}

	return txsizes.GetMinInputVirtualSize(pkScript), true
}
