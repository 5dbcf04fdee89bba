// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package policy

import (
	"errors"
	"fmt"

	"github.com/mycitadel/mcwallet/miniscript"
	"github.com/mycitadel/mcwallet/taptree"
)

// ErrUnsupportedPolicy is returned for a policy shape that has no fixed
// translation into miniscript.
var ErrUnsupportedPolicy = errors.New("unsupported policy")

// Compile translates the policy into a miniscript fragment for the script
// context. The translation is fixed: keys become pk, key thresholds become
// multi or, in tapscript, multi_a, with 1-of-1 collapsing to pk,
// and(X,Y) becomes and_v(v:X,Y) and or(X,Y) becomes or_i(X,Y).
func Compile(node Node, ctx miniscript.Context) (*miniscript.Fragment, error) {
	switch n := node.(type) {
	case Key:
		return miniscript.Pk(n.Key), nil

	case Thresh:
		keys := make([]miniscript.Key, 0, len(n.Subs))
		for _, sub := range n.Subs {
			key, ok := sub.(Key)
			if !ok {
				return nil, fmt.Errorf("%w: threshold over %v",
					ErrUnsupportedPolicy, sub)
			}
			keys = append(keys, key.Key)
		}

		switch {
		case n.K == 1 && len(keys) == 1:
			return miniscript.Pk(keys[0]), nil
		case ctx == miniscript.Tap:
			return miniscript.MultiA(n.K, keys...), nil
		default:
			return miniscript.Multi(n.K, keys...), nil
		}

	case And:
		a, err := Compile(n.A, ctx)
		if err != nil {
			return nil, err
		}
		b, err := Compile(n.B, ctx)
		if err != nil {
			return nil, err
		}
		return miniscript.AndV(miniscript.Verify(a), b), nil

	case Or:
		a, err := Compile(n.A, ctx)
		if err != nil {
			return nil, err
		}
		b, err := Compile(n.B, ctx)
		if err != nil {
			return nil, err
		}
		return miniscript.OrI(a, b), nil

	case After:
		return miniscript.After(n.N), nil

	case Older:
		return miniscript.Older(n.N), nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPolicy, node)
	}
}

// CompileTree compiles each alternative for tapscript and packs the
// fragments into a script tree.
func CompileTree(items []taptree.Item[Node]) (
	*taptree.Tree[*miniscript.Fragment], error) {

	tree, err := taptree.Pack(items)
	if err != nil {
		return nil, err
	}

	return taptree.Map(tree, func(n Node) (*miniscript.Fragment, error) {
		frag, err := Compile(n, miniscript.Tap)
		if err != nil {
			return nil, err
		}
		if err := frag.Check(miniscript.Tap); err != nil {
			return nil, err
		}
		return frag, nil
	})
}

// CompileOr packs the alternatives into a single OR policy and compiles it
// for the script context.
func CompileOr(items []taptree.Item[Node],
	ctx miniscript.Context) (*miniscript.Fragment, error) {

	node, err := PackOr(items)
	if err != nil {
		return nil, err
	}

	frag, err := Compile(node, ctx)
	if err != nil {
		return nil, err
	}
	if err := frag.Check(ctx); err != nil {
		return nil, err
	}

	return frag, nil
}
