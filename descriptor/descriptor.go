// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package descriptor builds output script descriptors from account keys and
// compiled miniscript, renders them in BIP-380 syntax and derives addresses
// from them.
package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mycitadel/mcwallet/miniscript"
	"github.com/mycitadel/mcwallet/taptree"
)

var (
	// ErrUnknownKey is returned when a script references a key that is not
	// a tracking key.
	ErrUnknownKey = errors.New("script key is not a tracking key")

	// ErrClassMismatch is returned when a descriptor shape is requested for
	// a class that cannot carry it.
	ErrClassMismatch = errors.New("descriptor class does not support " +
		"this descriptor shape")
)

// Shape is the concrete descriptor form.
type Shape uint8

const (
	// ShapePkh is pkh(KEY).
	ShapePkh Shape = iota

	// ShapeWpkh is wpkh(KEY).
	ShapeWpkh

	// ShapeShWpkh is sh(wpkh(KEY)).
	ShapeShWpkh

	// ShapeTrKey is tr(KEY) without a script tree.
	ShapeTrKey

	// ShapeSh is sh(SCRIPT).
	ShapeSh

	// ShapeWsh is wsh(SCRIPT).
	ShapeWsh

	// ShapeShWsh is sh(wsh(SCRIPT)).
	ShapeShWsh

	// ShapeTrTree is tr(KEY,TREE).
	ShapeTrTree
)

// Descriptor is a compiled output descriptor.
type Descriptor struct {
	class Class
	shape Shape

	// key is the only key of single key shapes and the internal key of
	// taproot shapes.
	key *TrackingKey

	// script is the miniscript of the sh, wsh and sh-wsh shapes.
	script *miniscript.Fragment

	// tree is the script tree of the tr-tree shape.
	tree *taptree.Tree[*miniscript.Fragment]
}

// NewSingleSig returns the single key descriptor of the class: pkh, wpkh,
// sh(wpkh) or key-path only tr.
func NewSingleSig(class Class, key *TrackingKey) (*Descriptor, error) {
	var shape Shape
	switch class {
	case PreSegwit:
		shape = ShapePkh
	case SegwitV0:
		shape = ShapeWpkh
	case NestedV0:
		shape = ShapeShWpkh
	case TaprootC0:
		shape = ShapeTrKey
	default:
		return nil, fmt.Errorf("%w: %v", ErrClassMismatch, class)
	}

	return &Descriptor{class: class, shape: shape, key: key}, nil
}

// NewScript returns the script hash descriptor of a pre-taproot class. The
// fragment is checked against the script context of the class.
func NewScript(class Class, script *miniscript.Fragment) (*Descriptor,
	error) {

	var shape Shape
	switch class {
	case PreSegwit:
		shape = ShapeSh
	case SegwitV0:
		shape = ShapeWsh
	case NestedV0:
		shape = ShapeShWsh
	default:
		return nil, fmt.Errorf("%w: %v", ErrClassMismatch, class)
	}

	if err := checkKeys(script); err != nil {
		return nil, err
	}
	if err := script.Check(class.ScriptContext()); err != nil {
		return nil, err
	}

	return &Descriptor{class: class, shape: shape, script: script}, nil
}

// NewTaproot returns a taproot descriptor with a script tree. Every leaf is
// checked in the tapscript context.
func NewTaproot(internal *TrackingKey,
	tree *taptree.Tree[*miniscript.Fragment]) (*Descriptor, error) {

	for _, leaf := range tree.Leaves() {
		if err := checkKeys(leaf.Value); err != nil {
			return nil, err
		}
		if err := leaf.Value.Check(miniscript.Tap); err != nil {
			return nil, err
		}
	}

	return &Descriptor{
		class: TaprootC0,
		shape: ShapeTrTree,
		key:   internal,
		tree:  tree,
	}, nil
}

func checkKeys(script *miniscript.Fragment) error {
	for _, key := range script.Keys() {
		if _, ok := key.(*TrackingKey); !ok {
			return fmt.Errorf("%w: %v", ErrUnknownKey, key)
		}
	}

	return nil
}

// Class returns the descriptor class.
func (d *Descriptor) Class() Class {
	return d.class
}

// Shape returns the descriptor shape.
func (d *Descriptor) Shape() Shape {
	return d.shape
}

// Script returns the miniscript of script hash shapes, or nil.
func (d *Descriptor) Script() *miniscript.Fragment {
	return d.script
}

// Tree returns the script tree of the tr-tree shape, or nil.
func (d *Descriptor) Tree() *taptree.Tree[*miniscript.Fragment] {
	return d.tree
}

// Keys returns every tracking key of the descriptor. For taproot the
// internal key comes first.
func (d *Descriptor) Keys() []*TrackingKey {
	var keys []*TrackingKey
	if d.key != nil {
		keys = append(keys, d.key)
	}

	var scripts []*miniscript.Fragment
	switch {
	case d.script != nil:
		scripts = append(scripts, d.script)

	case d.tree != nil:
		for _, leaf := range d.tree.Leaves() {
			scripts = append(scripts, leaf.Value)
		}
	}

	for _, script := range scripts {
		for _, key := range script.Keys() {
			keys = append(keys, key.(*TrackingKey))
		}
	}

	return keys
}

// Body renders the descriptor without its checksum.
func (d *Descriptor) Body() string {
	var b strings.Builder

	switch d.shape {
	case ShapePkh:
		fmt.Fprintf(&b, "pkh(%v)", d.key)
	case ShapeWpkh:
		fmt.Fprintf(&b, "wpkh(%v)", d.key)
	case ShapeShWpkh:
		fmt.Fprintf(&b, "sh(wpkh(%v))", d.key)
	case ShapeTrKey:
		fmt.Fprintf(&b, "tr(%v)", d.key)
	case ShapeSh:
		fmt.Fprintf(&b, "sh(%v)", d.script)
	case ShapeWsh:
		fmt.Fprintf(&b, "wsh(%v)", d.script)
	case ShapeShWsh:
		fmt.Fprintf(&b, "sh(wsh(%v))", d.script)
	case ShapeTrTree:
		tree := d.tree.Format(func(f *miniscript.Fragment) string {
			return f.String()
		})
		fmt.Fprintf(&b, "tr(%v,%s)", d.key, tree)
	}

	return b.String()
}

// String renders the descriptor with its BIP-380 checksum.
func (d *Descriptor) String() string {
	body := d.Body()

	desc, err := AddChecksum(body)
	if err != nil {
		// Every character produced by Body is in the descriptor
		// character set.
		return body
	}

	return desc
}
