package wallet

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
	"github.com/stretchr/testify/require"
)

// testTimelock is a timestamp used by conditions in tests.
var testTimelock = time.Unix(1900000000, 0).UTC()

// testMaster returns the master key generated from a seed filled with the
// byte.
func testMaster(t require.TestingT, seed byte,
	network Network) *hdkeychain.ExtendedKey {

	master, err := hdkeychain.NewMaster(
		bytes.Repeat([]byte{seed}, hdkeychain.RecommendedSeedLen),
		network.Params(),
	)
	require.NoError(t, err)

	return master
}

// deriveTestPath derives the key at the path below the key.
func deriveTestPath(t require.TestingT, key *hdkeychain.ExtendedKey,
	path []uint32) *hdkeychain.ExtendedKey {

	for _, index := range path {
		var err error
		key, err = key.Derive(index)
		require.NoError(t, err)
	}

	return key
}

// testSigner returns a signer for the first account of the standard under
// the master key generated from the seed, together with the master key.
func testSigner(t require.TestingT, seed byte,
	std keyorigin.DerivationStandard,
	network Network) (Signer, *hdkeychain.ExtendedKey) {

	master := testMaster(t, seed, network)
	masterPub, err := master.ECPubKey()
	require.NoError(t, err)

	origin := std.AccountPath(0, network.IsTestnet())
	xpub, err := deriveTestPath(t, master, origin).Neuter()
	require.NoError(t, err)

	return Signer{
		Fingerprint: descriptor.FingerprintOf(masterPub),
		Origin:      origin,
		Account:     fn.Some(uint32(0)),
		Xpub:        xpub,
		Name:        "signer",
		Ownership:   Mine,
	}, master
}

// testSigners returns n signers of distinct seeds.
func testSigners(t require.TestingT, n int, std keyorigin.DerivationStandard,
	network Network) []Signer {

	signers := make([]Signer, 0, n)
	for i := range n {
		signer, _ := testSigner(t, byte(i+1), std, network)
		signers = append(signers, signer)
	}

	return signers
}

// allOrAnyLater returns the conditions of a wallet spendable by every
// signer, or by any signer after testTimelock.
func allOrAnyLater() []policy.DepthCondition {
	return []policy.DepthCondition{
		{
			Depth: 0,
			Condition: policy.Sigs(
				policy.All(), policy.NoTimelock(),
			),
		},
		{
			Depth: 1,
			Condition: policy.Sigs(
				policy.Any(), policy.AfterDate(testTimelock),
			),
		},
	}
}

// testSettings builds the settings of a two signer testnet wallet.
func testSettings(t *testing.T, classes ...descriptor.Class) *WalletSettings {
	t.Helper()

	settings, err := Build(
		testSigners(t, 2, keyorigin.Bip87, Testnet), allOrAnyLater(),
		classes, descriptor.DefaultTerminal(), Testnet,
	)
	require.NoError(t, err)

	return settings
}

// requireSameSigners checks that two signer lists describe the same keys
// and metadata.
func requireSameSigners(t *testing.T, want, got []Signer) {
	t.Helper()

	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, want[i].Fingerprint, got[i].Fingerprint)
		require.Equal(t, want[i].Origin, got[i].Origin)
		require.Equal(t, want[i].Account, got[i].Account)
		require.Equal(t, want[i].Xpub.String(), got[i].Xpub.String())
		require.Equal(t, want[i].Device, got[i].Device)
		require.Equal(t, want[i].Name, got[i].Name)
		require.Equal(t, want[i].Ownership, got[i].Ownership)
	}
}
