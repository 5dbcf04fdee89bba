// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"

	"github.com/mycitadel/mcwallet/miniscript"
)

// Class is the kind of output script a descriptor produces.
type Class uint8

const (
	// PreSegwit produces P2PKH outputs for a single key and P2SH outputs
	// for scripts.
	PreSegwit Class = iota

	// SegwitV0 produces native P2WPKH and P2WSH outputs.
	SegwitV0

	// NestedV0 produces segwit v0 outputs nested in P2SH.
	NestedV0

	// TaprootC0 produces taproot outputs. Scripts are only reachable
	// through the script path.
	TaprootC0
)

// Classes lists every descriptor class in canonical order.
var Classes = []Class{PreSegwit, SegwitV0, NestedV0, TaprootC0}

// String returns the name of the class.
func (c Class) String() string {
	switch c {
	case PreSegwit:
		return "legacy"
	case SegwitV0:
		return "segwit"
	case NestedV0:
		return "nested"
	case TaprootC0:
		return "taproot"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	for _, c := range Classes {
		if c.String() == s {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown descriptor class %q", s)
}

// IsValid reports whether the class is one of the known classes.
func (c Class) IsValid() bool {
	return c <= TaprootC0
}

// ScriptContext returns the miniscript context scripts of the class are
// compiled for.
func (c Class) ScriptContext() miniscript.Context {
	switch c {
	case PreSegwit:
		return miniscript.Legacy
	case TaprootC0:
		return miniscript.Tap
	default:
		return miniscript.Segwitv0
	}
}
