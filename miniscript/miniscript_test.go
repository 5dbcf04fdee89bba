package miniscript

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// testKey is a named key placeholder.
type testKey string

func (k testKey) String() string {
	return string(k)
}

// testResolver deterministically maps every key name to a private key.
func testResolver() KeyResolver {
	return func(key Key) (*btcec.PublicKey, error) {
		var secret [32]byte
		copy(secret[:], key.String())
		secret[31] = 1

		priv, _ := btcec.PrivKeyFromBytes(secret[:])
		return priv.PubKey(), nil
	}
}

// TestString checks the textual form of fragments.
func TestString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		frag *Fragment
		want string
	}{
		{
			name: "pk sugar",
			frag: Pk(testKey("A")),
			want: "pk(A)",
		},
		{
			name: "verify pk",
			frag: Verify(Pk(testKey("A"))),
			want: "v:pk(A)",
		},
		{
			name: "multi",
			frag: Multi(2, testKey("A"), testKey("B"), testKey("C")),
			want: "multi(2,A,B,C)",
		},
		{
			name: "timelocked branch",
			frag: OrI(
				Pk(testKey("A")),
				AndV(Verify(Pk(testKey("B"))), After(800000)),
			),
			want: "or_i(pk(A),and_v(v:pk(B),after(800000)))",
		},
		{
			name: "verify multi_a older",
			frag: AndV(
				Verify(MultiA(1, testKey("A"), testKey("B"))),
				Older(144),
			),
			want: "and_v(v:multi_a(1,A,B),older(144))",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, tc.frag.String())
		})
	}
}

// TestScript checks the opcodes produced for each fragment kind.
func TestScript(t *testing.T) {
	t.Parallel()

	resolve := testResolver()
	keyA, _ := resolve(testKey("A"))
	keyB, _ := resolve(testKey("B"))

	tests := []struct {
		name  string
		frag  *Fragment
		ctx   Context
		build func(b *txscript.ScriptBuilder)
	}{
		{
			name: "pk",
			frag: Pk(testKey("A")),
			ctx:  Segwitv0,
			build: func(b *txscript.ScriptBuilder) {
				b.AddData(keyA.SerializeCompressed())
				b.AddOp(txscript.OP_CHECKSIG)
			},
		},
		{
			name: "collapsed verify",
			frag: AndV(Verify(Pk(testKey("A"))), Older(10)),
			ctx:  Segwitv0,
			build: func(b *txscript.ScriptBuilder) {
				b.AddData(keyA.SerializeCompressed())
				b.AddOp(txscript.OP_CHECKSIGVERIFY)
				b.AddInt64(10)
				b.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
			},
		},
		{
			name: "verify after or",
			frag: AndV(
				Verify(OrI(Pk(testKey("A")), Pk(testKey("B")))),
				After(500),
			),
			ctx: Legacy,
			build: func(b *txscript.ScriptBuilder) {
				b.AddOp(txscript.OP_IF)
				b.AddData(keyA.SerializeCompressed())
				b.AddOp(txscript.OP_CHECKSIG)
				b.AddOp(txscript.OP_ELSE)
				b.AddData(keyB.SerializeCompressed())
				b.AddOp(txscript.OP_CHECKSIG)
				b.AddOp(txscript.OP_ENDIF)
				b.AddOp(txscript.OP_VERIFY)
				b.AddInt64(500)
				b.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
			},
		},
		{
			name: "multi",
			frag: Multi(1, testKey("A"), testKey("B")),
			ctx:  Segwitv0,
			build: func(b *txscript.ScriptBuilder) {
				b.AddOp(txscript.OP_1)
				b.AddData(keyA.SerializeCompressed())
				b.AddData(keyB.SerializeCompressed())
				b.AddOp(txscript.OP_2)
				b.AddOp(txscript.OP_CHECKMULTISIG)
			},
		},
		{
			name: "multi_a x-only keys",
			frag: MultiA(2, testKey("A"), testKey("B")),
			ctx:  Tap,
			build: func(b *txscript.ScriptBuilder) {
				b.AddData(keyA.SerializeCompressed()[1:])
				b.AddOp(txscript.OP_CHECKSIG)
				b.AddData(keyB.SerializeCompressed()[1:])
				b.AddOp(txscript.OP_CHECKSIGADD)
				b.AddOp(txscript.OP_2)
				b.AddOp(txscript.OP_NUMEQUAL)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := txscript.NewScriptBuilder()
			tc.build(b)
			want, err := b.Script()
			require.NoError(t, err)

			script, err := tc.frag.Script(tc.ctx, resolve)
			require.NoError(t, err)
			require.True(t, bytes.Equal(want, script))
			require.Equal(t, len(script), tc.frag.ScriptLen(tc.ctx))
		})
	}
}

// TestCheck checks the context and limit rules.
func TestCheck(t *testing.T) {
	t.Parallel()

	keys := make([]Key, 21)
	for i := range keys {
		keys[i] = testKey(fmt.Sprintf("K%d", i))
	}

	tests := []struct {
		name string
		frag *Fragment
		ctx  Context
		err  error
	}{
		{
			name: "multi in tapscript",
			frag: Multi(1, keys[0], keys[1]),
			ctx:  Tap,
			err:  ErrWrongContext,
		},
		{
			name: "multi_a outside tapscript",
			frag: MultiA(1, keys[0], keys[1]),
			ctx:  Segwitv0,
			err:  ErrWrongContext,
		},
		{
			name: "threshold above key count",
			frag: Multi(3, keys[0], keys[1]),
			ctx:  Segwitv0,
			err:  ErrThreshold,
		},
		{
			name: "zero threshold",
			frag: MultiA(0, keys[0]),
			ctx:  Tap,
			err:  ErrThreshold,
		},
		{
			name: "too many multi keys",
			frag: Multi(1, keys...),
			ctx:  Segwitv0,
			err:  ErrTooManyKeys,
		},
		{
			name: "verify at top level",
			frag: Verify(Pk(keys[0])),
			ctx:  Segwitv0,
			err:  ErrNotBasic,
		},
		{
			name: "legacy redeem script too large",
			frag: OrI(
				Multi(1, keys[:15]...),
				Multi(1, keys[5:20]...),
			),
			ctx: Legacy,
			err: ErrScriptSize,
		},
		{
			name: "many keys fine in tapscript",
			frag: MultiA(1, keys...),
			ctx:  Tap,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.frag.Check(tc.ctx)
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
		})
	}
}

// TestKeys checks that keys are listed in script order.
func TestKeys(t *testing.T) {
	t.Parallel()

	frag := OrI(
		Multi(1, testKey("A"), testKey("B")),
		AndV(Verify(Pk(testKey("C"))), Older(6)),
	)

	var names []string
	for _, key := range frag.Keys() {
		names = append(names, key.String())
	}
	require.Equal(t, []string{"A", "B", "C"}, names)
}

// TestScriptLenMatchesBuilder checks the analytic length against the builder
// for random timelock values.
func TestScriptLenMatchesBuilder(t *testing.T) {
	t.Parallel()

	resolve := testResolver()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint32().Draw(t, "n")
		frag := OrI(
			AndV(Verify(Pk(testKey("A"))), After(n)),
			AndV(Verify(Pk(testKey("B"))), Older(n)),
		)

		for _, ctx := range []Context{Legacy, Segwitv0, Tap} {
			script, err := frag.Script(ctx, resolve)
			require.NoError(t, err)
			require.Equal(t, len(script), frag.ScriptLen(ctx))
		}
	})
}
