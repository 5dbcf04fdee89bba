// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package taptree packs a depth-ordered list of script fragments into a binary
// tree. The same pairing fold is used for taproot script trees and for the
// OR-combination of policies in pre-taproot descriptors.
package taptree

import (
	"errors"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrEmptyTree is returned when there are no fragments to pack.
	ErrEmptyTree = errors.New("no spending conditions to construct a " +
		"tree from")

	// ErrInconsistentTree is returned when the fold reaches a state where
	// both an accumulated tree and an unpaired leaf are present. This can
	// only happen if the fold itself is broken.
	ErrInconsistentTree = errors.New("unable to construct TapTree from " +
		"the given spending conditions")
)

// Item is a fragment placed at a pairing depth. The depth is not the depth of
// the resulting tree: its parity decides whether the last fragment of the
// list is carried as an unpaired leaf (odd) or starts the tree (even).
type Item[L any] struct {
	// Depth is the pairing discriminant of the fragment.
	Depth uint8

	// Value is the fragment itself.
	Value L
}

// Fold performs a right fold over the items. The leaf function lifts a single
// fragment into the accumulator type, the join function combines the lifted
// earlier fragment with everything folded so far. Where the earlier fragment
// ends up inside the combined node is decided by join.
func Fold[L, T any](items []Item[L], leaf func(L) T,
	join func(earlier, rest T) T) (T, error) {

	var (
		zero  T
		tree  = fn.None[T]()
		carry = fn.None[L]()
	)

	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]

		switch {
		case tree.IsNone() && carry.IsNone():
			if item.Depth%2 == 1 {
				carry = fn.Some(item.Value)
				continue
			}

			tree = fn.Some(leaf(item.Value))

		case tree.IsNone():
			rest := leaf(carry.UnsafeFromSome())
			tree = fn.Some(join(leaf(item.Value), rest))
			carry = fn.None[L]()

		case carry.IsNone():
			tree = fn.Some(join(leaf(item.Value), tree.UnsafeFromSome()))

		default:
			return zero, ErrInconsistentTree
		}
	}

	if tree.IsSome() && carry.IsSome() {
		return zero, ErrInconsistentTree
	}

	if tree.IsSome() {
		return tree.UnsafeFromSome(), nil
	}

	if carry.IsSome() {
		return leaf(carry.UnsafeFromSome()), nil
	}

	return zero, ErrEmptyTree
}

// Tree is a binary tree of fragments. A node is either a leaf holding a
// fragment or a branch with exactly two children.
type Tree[L any] struct {
	leaf  L
	left  *Tree[L]
	right *Tree[L]
}

// NewLeaf returns a single-leaf tree.
func NewLeaf[L any](value L) *Tree[L] {
	return &Tree[L]{leaf: value}
}

// NewBranch returns a branch node over the two subtrees.
func NewBranch[L any](left, right *Tree[L]) *Tree[L] {
	return &Tree[L]{left: left, right: right}
}

// Pack folds the items into a tree. The earlier fragment of every pair is
// placed in the left branch.
func Pack[L any](items []Item[L]) (*Tree[L], error) {
	return Fold(items, NewLeaf[L], NewBranch[L])
}

// IsLeaf reports whether the node is a leaf.
func (t *Tree[L]) IsLeaf() bool {
	return t.left == nil && t.right == nil
}

// Leaf returns the fragment held by a leaf node.
func (t *Tree[L]) Leaf() (L, bool) {
	if !t.IsLeaf() {
		var zero L
		return zero, false
	}

	return t.leaf, true
}

// Children returns the two subtrees of a branch node, or nils for a leaf.
func (t *Tree[L]) Children() (*Tree[L], *Tree[L]) {
	return t.left, t.right
}

// Leaves returns the leaves of the tree in depth-first, left-to-right order.
// The depth of each returned item is its depth in the tree.
func (t *Tree[L]) Leaves() []Item[L] {
	var leaves []Item[L]
	t.walk(0, func(depth uint8, leaf L) {
		leaves = append(leaves, Item[L]{Depth: depth, Value: leaf})
	})

	return leaves
}

func (t *Tree[L]) walk(depth uint8, f func(uint8, L)) {
	if t.IsLeaf() {
		f(depth, t.leaf)
		return
	}

	t.left.walk(depth+1, f)
	t.right.walk(depth+1, f)
}

// Height returns the length of the longest path from the root to a leaf.
func (t *Tree[L]) Height() int {
	if t.IsLeaf() {
		return 0
	}

	return 1 + max(t.left.Height(), t.right.Height())
}

// Format renders the tree in output descriptor syntax: a leaf is rendered on
// its own and a branch as "{left,right}".
func (t *Tree[L]) Format(render func(L) string) string {
	var b strings.Builder
	t.format(&b, render)

	return b.String()
}

func (t *Tree[L]) format(b *strings.Builder, render func(L) string) {
	if t.IsLeaf() {
		b.WriteString(render(t.leaf))
		return
	}

	b.WriteByte('{')
	t.left.format(b, render)
	b.WriteByte(',')
	t.right.format(b, render)
	b.WriteByte('}')
}

// Map returns a tree of the same shape with every leaf transformed by f.
func Map[L, M any](t *Tree[L], f func(L) (M, error)) (*Tree[M], error) {
	if t.IsLeaf() {
		m, err := f(t.leaf)
		if err != nil {
			return nil, err
		}

		return NewLeaf(m), nil
	}

	left, err := Map(t.left, f)
	if err != nil {
		return nil, err
	}

	right, err := Map(t.right, f)
	if err != nil {
		return nil, err
	}

	return NewBranch(left, right), nil
}
