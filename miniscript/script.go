// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miniscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// KeyResolver maps a key placeholder to the public key pushed in the script.
type KeyResolver func(Key) (*btcec.PublicKey, error)

// Script builds the script of the fragment for the given context. Every key
// is turned into a public key using resolve and serialized in the format of
// the context: x-only for tapscript, compressed otherwise.
func (f *Fragment) Script(ctx Context, resolve KeyResolver) ([]byte, error) {
	if err := f.Check(ctx); err != nil {
		return nil, err
	}

	b := txscript.NewScriptBuilder()
	if err := f.build(b, ctx, resolve, false); err != nil {
		return nil, err
	}

	return b.Script()
}

func pushKey(b *txscript.ScriptBuilder, ctx Context, resolve KeyResolver,
	key Key) error {

	pubKey, err := resolve(key)
	if err != nil {
		return fmt.Errorf("unable to resolve key %v: %w", key, err)
	}

	if ctx == Tap {
		b.AddData(schnorr.SerializePubKey(pubKey))
	} else {
		b.AddData(pubKey.SerializeCompressed())
	}

	return nil
}

// build appends the script of the fragment to the builder. When verify is
// set, the fragment must end in an opcode with a VERIFY variant and that
// variant is emitted.
func (f *Fragment) build(b *txscript.ScriptBuilder, ctx Context,
	resolve KeyResolver, verify bool) error {

	switch f.identifier {
	case fPkK:
		return pushKey(b, ctx, resolve, f.keys[0])

	case fWrapC:
		if err := f.args[0].build(b, ctx, resolve, false); err != nil {
			return err
		}
		if verify {
			b.AddOp(txscript.OP_CHECKSIGVERIFY)
		} else {
			b.AddOp(txscript.OP_CHECKSIG)
		}

	case fWrapV:
		child := f.args[0]
		if child.canCollapseVerify() {
			return child.build(b, ctx, resolve, true)
		}

		if err := child.build(b, ctx, resolve, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_VERIFY)

	case fMulti:
		b.AddInt64(int64(f.k))
		for _, key := range f.keys {
			if err := pushKey(b, ctx, resolve, key); err != nil {
				return err
			}
		}
		b.AddInt64(int64(len(f.keys)))
		if verify {
			b.AddOp(txscript.OP_CHECKMULTISIGVERIFY)
		} else {
			b.AddOp(txscript.OP_CHECKMULTISIG)
		}

	case fMultiA:
		for i, key := range f.keys {
			if err := pushKey(b, ctx, resolve, key); err != nil {
				return err
			}
			if i == 0 {
				b.AddOp(txscript.OP_CHECKSIG)
			} else {
				b.AddOp(txscript.OP_CHECKSIGADD)
			}
		}
		b.AddInt64(int64(f.k))
		if verify {
			b.AddOp(txscript.OP_NUMEQUALVERIFY)
		} else {
			b.AddOp(txscript.OP_NUMEQUAL)
		}

	case fAfter:
		b.AddInt64(int64(f.num))
		b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)

	case fOlder:
		b.AddInt64(int64(f.num))
		b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)

	case fAndV:
		if err := f.args[0].build(b, ctx, resolve, false); err != nil {
			return err
		}
		return f.args[1].build(b, ctx, resolve, verify)

	case fOrI:
		b.AddOp(txscript.OP_IF)
		if err := f.args[0].build(b, ctx, resolve, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ELSE)
		if err := f.args[1].build(b, ctx, resolve, false); err != nil {
			return err
		}
		b.AddOp(txscript.OP_ENDIF)

	default:
		return fmt.Errorf("unknown fragment %q", f.identifier)
	}

	return nil
}

// scriptNumLen returns the number of bytes needed to push n the way
// txscript.ScriptBuilder.AddInt64 does.
func scriptNumLen(n int64) int {
	if n == -1 || (n >= 0 && n <= 16) {
		return 1
	}

	size := 0
	for v := n; v != 0; v >>= 8 {
		size++
	}

	// A set sign bit in the most significant byte requires an extra byte.
	if n>>(uint(size)*8-1)&1 == 1 {
		size++
	}

	return 1 + size
}

// ScriptLen returns the length of the script of the fragment in the given
// context without building it.
func (f *Fragment) ScriptLen(ctx Context) int {
	keyLen := 1 + ctx.pubKeyLen()

	switch f.identifier {
	case fPkK:
		return keyLen

	case fWrapC:
		return f.args[0].ScriptLen(ctx) + 1

	case fWrapV:
		child := f.args[0]
		if child.canCollapseVerify() {
			return child.ScriptLen(ctx)
		}
		return child.ScriptLen(ctx) + 1

	case fMulti:
		return scriptNumLen(int64(f.k)) + keyLen*len(f.keys) +
			scriptNumLen(int64(len(f.keys))) + 1

	case fMultiA:
		return (keyLen+1)*len(f.keys) + scriptNumLen(int64(f.k)) + 1

	case fAfter, fOlder:
		return scriptNumLen(int64(f.num)) + 1

	case fAndV:
		return f.args[0].ScriptLen(ctx) + f.args[1].ScriptLen(ctx)

	case fOrI:
		return f.args[0].ScriptLen(ctx) + f.args[1].ScriptLen(ctx) + 3

	default:
		return 0
	}
}
