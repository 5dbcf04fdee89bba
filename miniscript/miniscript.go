// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package miniscript implements the subset of miniscript fragments that the
// spending policy compiler emits, together with their textual form and the
// script they translate to.
package miniscript

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// multisigMaxKeys is the maximum number of keys in a multi fragment.
	multisigMaxKeys = 20

	// multiAMaxKeys is the maximum number of keys in a multi_a fragment.
	multiAMaxKeys = 999

	// maxStandardP2WSHScriptSize is the maximum size in bytes of a
	// standard witness script.
	maxStandardP2WSHScriptSize = 3600

	// maxP2SHScriptSize is the maximum size of a P2SH redeem script, which
	// is limited by the maximum size of a single stack element.
	maxP2SHScriptSize = 520
)

const (
	// All fragment identifiers.

	fPkK    = "pk_k"    // pk_k(key)
	fMulti  = "multi"   // multi(k,key1,...,keyn)
	fMultiA = "multi_a" // multi_a(k,key1,...,keyn)
	fAfter  = "after"   // after(n)
	fOlder  = "older"   // older(n)
	fAndV   = "and_v"   // and_v(X,Y)
	fOrI    = "or_i"    // or_i(X,Z)
	fWrapC  = "c"       // c:X
	fWrapV  = "v"       // v:X
)

var (
	// ErrWrongContext is returned when a fragment is used in a script
	// context that does not support it.
	ErrWrongContext = errors.New("fragment not supported in script context")

	// ErrThreshold is returned for a threshold outside of 1..n.
	ErrThreshold = errors.New("invalid threshold")

	// ErrTooManyKeys is returned when a multisig fragment exceeds the key
	// limit of its kind.
	ErrTooManyKeys = errors.New("too many keys")

	// ErrScriptSize is returned when the resulting script exceeds the size
	// limit of its context.
	ErrScriptSize = errors.New("script exceeds size limit")

	// ErrNotBasic is returned when a fragment that is not of the basic
	// type is used where a basic expression is required.
	ErrNotBasic = errors.New("fragment is not a basic expression")
)

// Context is the script context a fragment is compiled for.
type Context uint8

const (
	// Legacy is the pre-segwit P2SH context.
	Legacy Context = iota

	// Segwitv0 is the P2WSH context.
	Segwitv0

	// Tap is the tapscript context.
	Tap
)

// String returns a human readable name of the context.
func (c Context) String() string {
	switch c {
	case Legacy:
		return "legacy"
	case Segwitv0:
		return "segwitv0"
	case Tap:
		return "tap"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// pubKeyLen returns the length of a public key pushed in the context.
func (c Context) pubKeyLen() int {
	if c == Tap {
		return 32
	}

	return 33
}

// Key is a public key placeholder inside a fragment. Fragments only need the
// textual form of a key; the actual public key is supplied when the script is
// built.
type Key interface {
	fmt.Stringer
}

// Fragment is a node of a miniscript expression.
type Fragment struct {
	identifier string
	keys       []Key
	k          int
	num        uint32
	args       []*Fragment
}

// Pk returns the pk(key) fragment, which is c:pk_k(key).
func Pk(key Key) *Fragment {
	return &Fragment{
		identifier: fWrapC,
		args: []*Fragment{{
			identifier: fPkK,
			keys:       []Key{key},
		}},
	}
}

// Multi returns the multi(k,keys...) fragment.
func Multi(k int, keys ...Key) *Fragment {
	return &Fragment{identifier: fMulti, k: k, keys: keys}
}

// MultiA returns the multi_a(k,keys...) fragment.
func MultiA(k int, keys ...Key) *Fragment {
	return &Fragment{identifier: fMultiA, k: k, keys: keys}
}

// After returns the after(n) fragment.
func After(n uint32) *Fragment {
	return &Fragment{identifier: fAfter, num: n}
}

// Older returns the older(n) fragment.
func Older(n uint32) *Fragment {
	return &Fragment{identifier: fOlder, num: n}
}

// AndV returns the and_v(x,y) fragment.
func AndV(x, y *Fragment) *Fragment {
	return &Fragment{identifier: fAndV, args: []*Fragment{x, y}}
}

// OrI returns the or_i(x,z) fragment.
func OrI(x, z *Fragment) *Fragment {
	return &Fragment{identifier: fOrI, args: []*Fragment{x, z}}
}

// Verify returns the v:x wrapper.
func Verify(x *Fragment) *Fragment {
	return &Fragment{identifier: fWrapV, args: []*Fragment{x}}
}

// isWrapper reports whether the fragment is a single letter wrapper.
func (f *Fragment) isWrapper() bool {
	return f.identifier == fWrapC || f.identifier == fWrapV
}

func (f *Fragment) isSugaredPk() bool {
	return f.identifier == fWrapC && f.args[0].identifier == fPkK
}

// String renders the fragment in miniscript syntax, with pk(key) written in
// its sugared form.
func (f *Fragment) String() string {
	var b strings.Builder
	f.format(&b)

	return b.String()
}

func (f *Fragment) format(b *strings.Builder) {
	switch f.identifier {
	case fWrapC, fWrapV:
		// c:pk_k(key) is always written as pk(key).
		if f.isSugaredPk() {
			b.WriteString("pk(")
			b.WriteString(f.args[0].keys[0].String())
			b.WriteByte(')')

			return
		}

		b.WriteString(f.identifier)
		if !f.args[0].isWrapper() || f.args[0].isSugaredPk() {
			b.WriteByte(':')
		}
		f.args[0].format(b)

	case fPkK:
		b.WriteString("pk_k(")
		b.WriteString(f.keys[0].String())
		b.WriteByte(')')

	case fMulti, fMultiA:
		b.WriteString(f.identifier)
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(f.k))
		for _, key := range f.keys {
			b.WriteByte(',')
			b.WriteString(key.String())
		}
		b.WriteByte(')')

	case fAfter, fOlder:
		b.WriteString(f.identifier)
		b.WriteByte('(')
		b.WriteString(strconv.FormatUint(uint64(f.num), 10))
		b.WriteByte(')')

	case fAndV, fOrI:
		b.WriteString(f.identifier)
		b.WriteByte('(')
		f.args[0].format(b)
		b.WriteByte(',')
		f.args[1].format(b)
		b.WriteByte(')')
	}
}

// Keys returns every key used by the fragment, in script order. A key that
// occurs several times is returned each time it occurs.
func (f *Fragment) Keys() []Key {
	keys := append([]Key(nil), f.keys...)
	for _, arg := range f.args {
		keys = append(keys, arg.Keys()...)
	}

	return keys
}

// canCollapseVerify reports whether the last opcode of the fragment has a
// VERIFY variant, so a v: wrapper around it needs no separate OP_VERIFY.
func (f *Fragment) canCollapseVerify() bool {
	switch f.identifier {
	case fWrapC, fMulti, fMultiA:
		return true
	default:
		return false
	}
}

// isBasic reports whether the fragment is of the basic (B) type.
func (f *Fragment) isBasic() bool {
	switch f.identifier {
	case fWrapC, fMulti, fMultiA, fAfter, fOlder:
		return true

	case fAndV:
		return f.args[0].identifier == fWrapV && f.args[1].isBasic()

	case fOrI:
		return f.args[0].isBasic() && f.args[1].isBasic()

	default:
		return false
	}
}

// Check verifies that the fragment is a valid top level expression in the
// given context: it must be of the basic type, use only fragments the context
// supports, respect the threshold and key count limits and fit into the
// script size limit of the context.
func (f *Fragment) Check(ctx Context) error {
	if !f.isBasic() {
		return fmt.Errorf("%w: %v", ErrNotBasic, f)
	}

	if err := f.check(ctx); err != nil {
		return err
	}

	size := f.ScriptLen(ctx)
	switch {
	case ctx == Legacy && size > maxP2SHScriptSize:
		return fmt.Errorf("%w: %d > %d bytes", ErrScriptSize, size,
			maxP2SHScriptSize)

	case ctx == Segwitv0 && size > maxStandardP2WSHScriptSize:
		return fmt.Errorf("%w: %d > %d bytes", ErrScriptSize, size,
			maxStandardP2WSHScriptSize)
	}

	return nil
}

func (f *Fragment) check(ctx Context) error {
	switch f.identifier {
	case fMulti:
		if ctx == Tap {
			return fmt.Errorf("%w: %s in %v", ErrWrongContext,
				f.identifier, ctx)
		}
		if len(f.keys) > multisigMaxKeys {
			return fmt.Errorf("%w: %d > %d", ErrTooManyKeys,
				len(f.keys), multisigMaxKeys)
		}

	case fMultiA:
		if ctx != Tap {
			return fmt.Errorf("%w: %s in %v", ErrWrongContext,
				f.identifier, ctx)
		}
		if len(f.keys) > multiAMaxKeys {
			return fmt.Errorf("%w: %d > %d", ErrTooManyKeys,
				len(f.keys), multiAMaxKeys)
		}
	}

	if f.identifier == fMulti || f.identifier == fMultiA {
		if f.k < 1 || f.k > len(f.keys) {
			return fmt.Errorf("%w: %d of %d", ErrThreshold, f.k,
				len(f.keys))
		}
	}

	for _, arg := range f.args {
		if err := arg.check(ctx); err != nil {
			return err
		}
	}

	return nil
}
