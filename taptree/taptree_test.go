package taptree

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func render(s string) string {
	return s
}

// TestPack checks the shapes produced by the pairing fold.
func TestPack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []Item[string]
		want  string
	}{
		{
			name:  "single even depth",
			items: []Item[string]{{Depth: 0, Value: "a"}},
			want:  "a",
		},
		{
			name:  "single odd depth",
			items: []Item[string]{{Depth: 1, Value: "a"}},
			want:  "a",
		},
		{
			name: "carry merged with earlier fragment",
			items: []Item[string]{
				{Depth: 1, Value: "a"},
				{Depth: 2, Value: "b"},
			},
			want: "{a,b}",
		},
		{
			name: "odd tail pairs with its predecessor",
			items: []Item[string]{
				{Depth: 0, Value: "a"},
				{Depth: 1, Value: "b"},
				{Depth: 1, Value: "c"},
			},
			want: "{a,{b,c}}",
		},
		{
			name: "even tail starts the tree",
			items: []Item[string]{
				{Depth: 0, Value: "a"},
				{Depth: 2, Value: "b"},
				{Depth: 4, Value: "c"},
			},
			want: "{a,{b,c}}",
		},
		{
			name: "four fragments",
			items: []Item[string]{
				{Depth: 1, Value: "a"},
				{Depth: 2, Value: "b"},
				{Depth: 3, Value: "c"},
				{Depth: 3, Value: "d"},
			},
			want: "{a,{b,{c,d}}}",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tree, err := Pack(tc.items)
			require.NoError(t, err)
			require.Equal(t, tc.want, tree.Format(render))
		})
	}
}

// TestPackEmpty checks that an empty fragment list cannot be packed.
func TestPackEmpty(t *testing.T) {
	t.Parallel()

	_, err := Pack[string](nil)
	require.ErrorIs(t, err, ErrEmptyTree)
}

// TestFoldJoinOrder checks that the join function decides the placement of
// the earlier fragment.
func TestFoldJoinOrder(t *testing.T) {
	t.Parallel()

	items := []Item[string]{
		{Depth: 0, Value: "a"},
		{Depth: 1, Value: "b"},
	}

	or, err := Fold(items, render, func(earlier, rest string) string {
		return fmt.Sprintf("or(%s,%s)", rest, earlier)
	})
	require.NoError(t, err)
	require.Equal(t, "or(b,a)", or)
}

// TestPackPreservesOrder checks that packing keeps every fragment exactly
// once and in the input order.
func TestPackPreservesOrder(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		depths := rapid.SliceOfN(rapid.Uint8(), 1, 32).Draw(t, "depths")

		items := make([]Item[int], len(depths))
		for i, depth := range depths {
			items[i] = Item[int]{Depth: depth, Value: i}
		}

		tree, err := Pack(items)
		require.NoError(t, err)

		leaves := tree.Leaves()
		require.Len(t, leaves, len(items))
		for i, leaf := range leaves {
			require.Equal(t, i, leaf.Value)
		}
		require.LessOrEqual(t, tree.Height(), len(items))
	})
}

// TestMap checks that mapping keeps the shape of the tree.
func TestMap(t *testing.T) {
	t.Parallel()

	tree := NewBranch(NewLeaf(1), NewBranch(NewLeaf(2), NewLeaf(3)))

	mapped, err := Map(tree, func(i int) (string, error) {
		return fmt.Sprint(i * 10), nil
	})
	require.NoError(t, err)
	require.Equal(t, "{10,{20,30}}", mapped.Format(render))

	_, err = Map(tree, func(i int) (string, error) {
		if i == 3 {
			return "", fmt.Errorf("boom")
		}
		return "", nil
	})
	require.Error(t, err)
}

// TestCommitControlBlocks checks that every control block produced for the
// commitment verifies against the resulting output key.
func TestCommitControlBlocks(t *testing.T) {
	t.Parallel()

	scripts := [][]byte{
		{txscript.OP_1},
		{txscript.OP_2},
		{txscript.OP_3},
	}
	tree, err := Pack([]Item[[]byte]{
		{Depth: 0, Value: scripts[0]},
		{Depth: 1, Value: scripts[1]},
		{Depth: 1, Value: scripts[2]},
	})
	require.NoError(t, err)

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	internalKey := priv.PubKey()

	commitment := Commit(tree)
	require.Len(t, commitment.Leaves, 3)

	expectedRoot := txscript.NewTapBranch(
		txscript.NewBaseTapLeaf(scripts[0]),
		txscript.NewTapBranch(
			txscript.NewBaseTapLeaf(scripts[1]),
			txscript.NewBaseTapLeaf(scripts[2]),
		),
	)
	require.Equal(t, expectedRoot.TapHash(), commitment.RootHash())

	outputKey := commitment.OutputKey(internalKey)
	witnessProgram := schnorr.SerializePubKey(outputKey)

	for i, leaf := range commitment.Leaves {
		require.Equal(t, scripts[i], leaf.Leaf.Script)

		ctrlBlock := commitment.ControlBlock(internalKey, i)
		err := txscript.VerifyTaprootLeafCommitment(
			ctrlBlock, witnessProgram, leaf.Leaf.Script,
		)
		require.NoError(t, err)
	}
}
