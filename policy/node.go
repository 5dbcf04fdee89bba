// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package policy models the spending conditions of a wallet and turns them
// into abstract policies and miniscript fragments.
package policy

import (
	"fmt"
	"strings"

	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/taptree"
)

// Node is a node of an abstract spending policy.
type Node interface {
	fmt.Stringer

	policyNode()
}

// Key requires a signature of the key.
type Key struct {
	Key *descriptor.TrackingKey
}

// Thresh requires K of the sub-policies.
type Thresh struct {
	K    int
	Subs []Node
}

// And requires both sub-policies.
type And struct {
	A, B Node
}

// Or requires either sub-policy.
type Or struct {
	A, B Node
}

// After is an absolute timelock in lock time encoding.
type After struct {
	N uint32
}

// Older is a relative timelock in sequence encoding.
type Older struct {
	N uint32
}

func (Key) policyNode()    {}
func (Thresh) policyNode() {}
func (And) policyNode()    {}
func (Or) policyNode()     {}
func (After) policyNode()  {}
func (Older) policyNode()  {}

func (k Key) String() string {
	return fmt.Sprintf("pk(%v)", k.Key)
}

func (t Thresh) String() string {
	subs := make([]string, 0, len(t.Subs)+1)
	subs = append(subs, fmt.Sprint(t.K))
	for _, sub := range t.Subs {
		subs = append(subs, sub.String())
	}

	return "thresh(" + strings.Join(subs, ",") + ")"
}

func (a And) String() string {
	return fmt.Sprintf("and(%v,%v)", a.A, a.B)
}

func (o Or) String() string {
	return fmt.Sprintf("or(%v,%v)", o.A, o.B)
}

func (a After) String() string {
	return fmt.Sprintf("after(%d)", a.N)
}

func (o Older) String() string {
	return fmt.Sprintf("older(%d)", o.N)
}

// KeyEntry is a signer key by its master fingerprint.
type KeyEntry struct {
	Fingerprint descriptor.Fingerprint
	Key         *descriptor.TrackingKey
}

// ToPolicy translates the condition into a policy over the keys. The keys are
// used in the given order.
func ToPolicy(cond Condition, keys []KeyEntry) (Node, error) {
	if cond.Kind != ConditionSigs {
		return nil, fmt.Errorf("unsupported condition kind %d", cond.Kind)
	}

	thresh := func(k int) Node {
		subs := make([]Node, 0, len(keys))
		for _, entry := range keys {
			subs = append(subs, Key{Key: entry.Key})
		}
		return Thresh{K: k, Subs: subs}
	}

	var sigs Node
	req := cond.Sigs.Sigs
	switch req.Kind {
	case SigsAll:
		sigs = thresh(len(keys))

	case SigsAny:
		sigs = thresh(1)

	case SigsAtLeast:
		sigs = thresh(int(req.Count))

	case SigsSpecific:
		for _, entry := range keys {
			if entry.Fingerprint == req.Signer {
				sigs = Key{Key: entry.Key}
				break
			}
		}
		if sigs == nil {
			return nil, fmt.Errorf("no key for signer %v", req.Signer)
		}

	default:
		return nil, fmt.Errorf("unknown signature requirement %d",
			req.Kind)
	}

	lock := cond.Sigs.Timelock
	switch lock.Kind {
	case Anytime:
		return sigs, nil

	case AfterTime, AfterBlock:
		n, err := lock.LockTime()
		if err != nil {
			return nil, err
		}
		return And{A: sigs, B: After{N: n}}, nil

	case OlderTime, OlderBlock:
		n, err := lock.Sequence()
		if err != nil {
			return nil, err
		}
		return And{A: sigs, B: Older{N: n}}, nil

	default:
		return nil, fmt.Errorf("unknown timelock kind %d", lock.Kind)
	}
}

// PackOr combines the policies of the alternatives into a single policy with
// the same pairing as a taproot tree. The earlier policy of a pair becomes
// the right branch of the OR.
func PackOr(items []taptree.Item[Node]) (Node, error) {
	return taptree.Fold(items, func(n Node) Node {
		return n
	}, func(earlier, rest Node) Node {
		return Or{A: rest, B: earlier}
	})
}
