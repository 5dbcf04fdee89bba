// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package taptree

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// LeafProof is a tapscript leaf together with the merkle proof linking it to
// the root of the script tree.
type LeafProof struct {
	// Leaf is the tapscript leaf.
	Leaf txscript.TapLeaf

	// InclusionProof is the concatenation of the sibling hashes on the
	// path from the leaf up to the root.
	InclusionProof []byte
}

// Commitment is the taproot commitment of a tree of tapscripts.
type Commitment struct {
	// Root is the root node of the tapscript tree.
	Root txscript.TapNode

	// Leaves holds every leaf with its inclusion proof, in tree order.
	Leaves []LeafProof
}

// Commit builds the tapscript tree for a tree of scripts. All leaves use the
// base tapscript leaf version.
func Commit(t *Tree[[]byte]) *Commitment {
	root, leaves := commit(t)

	return &Commitment{
		Root:   root,
		Leaves: leaves,
	}
}

func commit(t *Tree[[]byte]) (txscript.TapNode, []LeafProof) {
	if t.IsLeaf() {
		leaf := txscript.NewBaseTapLeaf(t.leaf)
		return leaf, []LeafProof{{Leaf: leaf}}
	}

	left, leftLeaves := commit(t.left)
	right, rightLeaves := commit(t.right)

	leftHash := left.TapHash()
	rightHash := right.TapHash()

	for i := range leftLeaves {
		leftLeaves[i].InclusionProof = append(
			leftLeaves[i].InclusionProof, rightHash[:]...,
		)
	}
	for i := range rightLeaves {
		rightLeaves[i].InclusionProof = append(
			rightLeaves[i].InclusionProof, leftHash[:]...,
		)
	}

	branch := txscript.NewTapBranch(left, right)

	return branch, append(leftLeaves, rightLeaves...)
}

// RootHash returns the merkle root of the script tree.
func (c *Commitment) RootHash() chainhash.Hash {
	return c.Root.TapHash()
}

// OutputKey returns the taproot output key committing to the script tree
// under the given internal key.
func (c *Commitment) OutputKey(internalKey *btcec.PublicKey) *btcec.PublicKey {
	root := c.RootHash()
	return txscript.ComputeTaprootOutputKey(internalKey, root[:])
}

// ControlBlock returns the control block needed to spend the i-th leaf of the
// tree through the script path.
func (c *Commitment) ControlBlock(internalKey *btcec.PublicKey,
	i int) *txscript.ControlBlock {

	outputKey := c.OutputKey(internalKey)
	yIsOdd := outputKey.SerializeCompressed()[0] ==
		secp.PubKeyFormatCompressedOdd

	return &txscript.ControlBlock{
		InternalKey:     internalKey,
		OutputKeyYIsOdd: yIsOdd,
		LeafVersion:     c.Leaves[i].Leaf.LeafVersion,
		InclusionProof:  c.Leaves[i].InclusionProof,
	}
}
