package keyorigin

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/stretchr/testify/require"
)

const (
	bip84Zpub = "zpub6rFR7y4Q2AijBEqTUquhVz398htDFrtymD9xYYfG1m4wAcvPhX" +
		"NfE3EfH1r1ADqtfSdVCToUG868RvUUkgDKf31mGDtKsAYz2oz2AGutZYs"

	bip84Xpub = "xpub6CatWdiZiodmUeTDp8LT5or8nmbKNcuyvz7WyksVFkKB4RHwCD" +
		"3XyuvPEbvqAQY3rAPshWcMLoP2fMFMKHPJ4ZeZXYVUhLv1VMrjPC7PW6V"
)

func h(index uint32) uint32 {
	return index + hdkeychain.HardenedKeyStart
}

func version(v waddrmgr.HDVersion) KeyVersion {
	var kv KeyVersion
	binary.BigEndian.PutUint32(kv[:], uint32(v))

	return kv
}

// deriveKey derives the public key at path from a fixed test seed.
func deriveKey(t *testing.T, net *chaincfg.Params,
	path ...uint32) *hdkeychain.ExtendedKey {

	t.Helper()

	key, err := hdkeychain.NewMaster(bytes.Repeat([]byte{7}, 32), net)
	require.NoError(t, err)

	for _, index := range path {
		key, err = key.Derive(index)
		require.NoError(t, err)
	}

	pub, err := key.Neuter()
	require.NoError(t, err)

	return pub
}

func requireKind(t *testing.T, err error, kind RequirementKind) {
	t.Helper()

	var reqErr *XpubRequirementError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, kind, reqErr.Kind, err.Error())
}

// TestKeyVersion checks the SLIP-132 version table.
func TestKeyVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version     waddrmgr.HDVersion
		testnet     bool
		application fn.Option[DerivationStandard]
	}{
		{
			waddrmgr.HDVersionMainNetBIP0044, false,
			fn.None[DerivationStandard](),
		},
		{
			waddrmgr.HDVersionTestNetBIP0044, true,
			fn.None[DerivationStandard](),
		},
		{waddrmgr.HDVersionMainNetBIP0049, false, fn.Some(Bip49)},
		{waddrmgr.HDVersionTestNetBIP0084, true, fn.Some(Bip84)},
		{0x0295b43f, false, fn.Some(Bip48Nested)},
		{0x02575483, true, fn.Some(Bip48Native)},
	}

	for _, tc := range tests {
		v := version(tc.version)
		require.True(t, v.IsKnown())
		require.Equal(t, fn.Some(tc.testnet), v.Network())
		require.Equal(t, tc.application, v.Application())
		require.Equal(t, v, VersionFor(tc.application, tc.testnet))
	}

	unknown := KeyVersion{1, 2, 3, 4}
	require.False(t, unknown.IsKnown())
	require.True(t, unknown.Network().IsNone())
}

// TestDeduceStandard checks standard recognition from path shapes.
func TestDeduceStandard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []uint32
		want fn.Option[DerivationStandard]
	}{
		{"empty", nil, fn.None[DerivationStandard]()},
		{"unhardened purpose", []uint32{84, h(0)},
			fn.None[DerivationStandard]()},
		{"bip44", []uint32{h(44), h(0), h(0)}, fn.Some(Bip44)},
		{"bip84", []uint32{h(84), h(1), h(3)}, fn.Some(Bip84)},
		{"bip86", []uint32{h(86)}, fn.Some(Bip86)},
		{"bip45", []uint32{h(45), 3}, fn.Some(Bip45)},
		{"bip48 nested", []uint32{h(48), h(0), h(0), h(1)},
			fn.Some(Bip48Nested)},
		{"bip48 native", []uint32{h(48), h(1), h(0), h(2)},
			fn.Some(Bip48Native)},
		{"bip48 without script", []uint32{h(48), h(1), h(0)},
			fn.None[DerivationStandard]()},
		{"lnpbp43", []uint32{h(43), h(0)}, fn.Some(LnpBp43)},
		{"generic", []uint32{h(1017), h(0)}, fn.Some(Bip43(1017))},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, DeduceStandard(tc.path), tc.name)
	}
}

// TestStandardPaths checks account paths and the values read back from them.
func TestStandardPaths(t *testing.T) {
	t.Parallel()

	path := Bip48Native.AccountPath(5, true)
	require.Equal(t, "48h/1h/5h/2h", descriptor.FormatPath(path))

	account, err := PathAccount(Bip48Native, path)
	require.NoError(t, err)
	require.Equal(t, fn.Some[uint32](5), account)

	testnet, err := PathNetwork(Bip48Native, path)
	require.NoError(t, err)
	require.Equal(t, fn.Some(true), testnet)

	_, err = PathAccount(Bip84, []uint32{h(84), h(0), 0})
	var nonStd *NonStandardDerivationError
	require.ErrorAs(t, err, &nonStd)
	require.Equal(t, UnhardenedAccount, nonStd.Kind)

	_, err = PathNetwork(Bip84, []uint32{h(84), 0})
	require.ErrorAs(t, err, &nonStd)
	require.Equal(t, UnhardenedCoinType, nonStd.Kind)

	require.Equal(t, []uint32{h(45)}, Bip45.AccountPath(3, false))
	require.True(t, Bip45.AccountDepth().IsNone())
	require.Equal(t,
		fn.Some(descriptor.TaprootC0), Bip86.DescriptorClass(),
	)
}

// TestResolveWith checks every consistency rule between a key and its
// metadata.
func TestResolveWith(t *testing.T) {
	t.Parallel()

	mainAccount, err := hdkeychain.NewKeyFromString(bip84Xpub)
	require.NoError(t, err)

	testAccount, err := mainAccount.CloneWithVersion(
		chaincfg.TestNet3Params.HDPublicKeyID[:],
	)
	require.NoError(t, err)

	master := deriveKey(t, &chaincfg.MainNetParams)
	unhardened := deriveKey(
		t, &chaincfg.MainNetParams, h(84), h(0), 0,
	)
	bip48Account := deriveKey(
		t, &chaincfg.TestNet3Params, h(48), h(1), h(0), h(2),
	)

	zpub := fn.Some(version(waddrmgr.HDVersionMainNetBIP0084))
	vpub := fn.Some(version(waddrmgr.HDVersionTestNetBIP0084))
	noStandard := fn.None[DerivationStandard]()

	// Mainnet SLIP-132 version on a testnet key.
	_, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), testAccount, noStandard,
		zpub,
	)
	requireKind(t, err, NetworkMismatch)

	// Matching networks succeed, and the network comes from the key.
	origin, err := ResolveWith(
		fn.None[descriptor.Fingerprint](), testAccount, noStandard,
		vpub,
	)
	require.NoError(t, err)
	require.True(t, origin.Testnet)
	require.Equal(t, fn.Some(Bip84), origin.Standard)
	require.Equal(t, fn.Some[uint32](0), origin.Account)

	origin, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), mainAccount, noStandard,
		zpub,
	)
	require.NoError(t, err)
	require.False(t, origin.Testnet)

	_, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), mainAccount, fn.Some(Bip49),
		zpub,
	)
	requireKind(t, err, StandardMismatch)

	_, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), master, fn.Some(Bip84),
		fn.None[KeyVersion](),
	)
	requireKind(t, err, ShallowKey)

	_, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), unhardened, fn.Some(Bip84),
		fn.None[KeyVersion](),
	)
	requireKind(t, err, UnhardenedAccountKey)

	// The BIP-48 account key is derived at the script type, so the
	// account cannot be read from the key itself.
	origin, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), bip48Account,
		fn.Some(Bip48Native), fn.None[KeyVersion](),
	)
	require.NoError(t, err)
	require.True(t, origin.Account.IsNone())

	// Keys below the account level carry no account.
	deeper := deriveKey(t, &chaincfg.MainNetParams, h(84), h(0), h(1), 0)
	origin, err = ResolveWith(
		fn.None[descriptor.Fingerprint](), deeper, fn.Some(Bip84),
		fn.None[KeyVersion](),
	)
	require.NoError(t, err)
	require.True(t, origin.Account.IsNone())
}

// TestDeduce checks origin deduction from derivation paths.
func TestDeduce(t *testing.T) {
	t.Parallel()

	fp := descriptor.Fingerprint{0x73, 0xc5, 0xda, 0x0a}
	bip48Account := deriveKey(
		t, &chaincfg.TestNet3Params, h(48), h(1), h(7), h(2),
	)
	tpub := fn.Some(version(waddrmgr.HDVersionTestNetBIP0044))
	zpub := fn.Some(version(waddrmgr.HDVersionMainNetBIP0084))

	result, err := Deduce(
		fn.Some(fp), []uint32{h(48), h(1), h(7), h(2)}, bip48Account,
		tpub,
	)
	require.NoError(t, err)
	origin, err := result.Unpack()
	require.NoError(t, err)
	require.Equal(t, fn.Some(Bip48Native), origin.Standard)
	require.Equal(t, fn.Some[uint32](7), origin.Account)
	require.Equal(t, fn.Some(fp), origin.MasterFingerprint)
	require.True(t, origin.Testnet)

	// A testnet coin type with a mainnet SLIP-132 version.
	mainAccount, err := hdkeychain.NewKeyFromString(bip84Zpub)
	require.NoError(t, err)
	result, err = Deduce(
		fn.Some(fp), []uint32{h(84), h(1), h(0)}, mainAccount, zpub,
	)
	require.NoError(t, err)
	_, err = result.Unpack()
	requireKind(t, err, NetworkMismatch)

	// Unhardened account index in a BIP-84 path.
	_, err = Deduce(
		fn.Some(fp), []uint32{h(84), h(0), 0}, mainAccount, zpub,
	)
	var nonStd *NonStandardDerivationError
	require.ErrorAs(t, err, &nonStd)
	require.Equal(t, UnhardenedAccount, nonStd.Kind)
}

// TestParseXpubDescriptor checks the accepted key formats.
func TestParseXpubDescriptor(t *testing.T) {
	t.Parallel()

	desc, err := ParseXpubDescriptor(
		"[73c5da0a/84h/0h/0h]"+bip84Zpub, fn.None[DerivationStandard](),
	)
	require.NoError(t, err)
	require.Equal(t, bip84Xpub, desc.Xpub.String())
	require.Equal(t, "[73c5da0a/84h/0h/0h]"+bip84Xpub, desc.String())
	require.Equal(t, fn.Some(Bip84), desc.Origin.Standard)
	require.Equal(t, fn.Some[uint32](0), desc.Origin.Account)
	require.Equal(t, &chaincfg.MainNetParams, desc.Params())

	slip, err := desc.Slip132()
	require.NoError(t, err)
	require.Equal(t, bip84Zpub, slip)

	plain, err := ParseXpubDescriptor(
		bip84Xpub, fn.None[DerivationStandard](),
	)
	require.NoError(t, err)
	require.True(t, plain.Origin.Standard.IsNone())
	require.Equal(t, bip84Xpub, plain.String())

	core, err := desc.Core()
	require.NoError(t, err)
	plainCore, err := plain.Core()
	require.NoError(t, err)
	require.Zero(t, core.Compare(plainCore))

	_, err = ParseXpubDescriptor(bip84Zpub, fn.Some(Bip86))
	requireKind(t, err, StandardMismatch)

	_, err = ParseXpubDescriptor(
		"[73c5da0a/84h/0h]"+bip84Zpub, fn.None[DerivationStandard](),
	)
	require.ErrorIs(t, err, ErrOriginDepth)

	priv, err := hdkeychain.NewMaster(
		bytes.Repeat([]byte{7}, 32), &chaincfg.MainNetParams,
	)
	require.NoError(t, err)
	_, err = ParseXpubDescriptor(
		priv.String(), fn.None[DerivationStandard](),
	)
	require.ErrorIs(t, err, ErrPrivateKey)
}

// TestOriginFormat checks origin classification and rendering.
func TestOriginFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path    []uint32
		want    string
		account fn.Option[uint32]
	}{
		{nil, "m/", fn.None[uint32]()},
		{[]uint32{h(5)}, "5h", fn.Some[uint32](5)},
		{[]uint32{5}, "5", fn.None[uint32]()},
		{
			[]uint32{h(48), h(1), h(3), h(2)}, "m/48h/1h/3h/2h",
			fn.Some[uint32](3),
		},
		{
			[]uint32{h(84), h(0), h(0)}, "m/84h/0h/0h",
			fn.Some[uint32](0),
		},
		{[]uint32{0, 1, 2}, "m/0/1/2", fn.None[uint32]()},
	}

	for _, tc := range tests {
		format := OriginFormatOf(tc.path)
		require.Equal(t, tc.want, format.String())
		require.Equal(t, tc.account, format.Account())
	}
}

// TestParseStandard checks the command line names of the standards.
func TestParseStandard(t *testing.T) {
	t.Parallel()

	std, err := ParseStandard("BIP48-native")
	require.NoError(t, err)
	require.Equal(t, Bip48Native, std)

	std, err = ParseStandard("lnpbp43")
	require.NoError(t, err)
	require.Equal(t, LnpBp43, std)

	_, err = ParseStandard("bip32")
	require.Error(t, err)
}
