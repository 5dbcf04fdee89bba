package wallet

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/tlv"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestBuildValidation checks that every kind of invalid wallet is rejected
// with its error code.
func TestBuildValidation(t *testing.T) {
	t.Parallel()

	signers := testSigners(t, 2, keyorigin.Bip87, Testnet)
	all := policy.Sigs(policy.All(), policy.NoTimelock())
	segwit := []descriptor.Class{descriptor.SegwitV0}

	tests := []struct {
		name    string
		signers []Signer
		conds   []policy.DepthCondition
		classes []descriptor.Class
		code    ErrorCode
	}{{
		name:    "duplicate signer",
		signers: []Signer{signers[0], signers[1], signers[0]},
		conds:   allOrAnyLater(),
		classes: segwit,
		code:    ErrDuplicateSigner,
	}, {
		name:    "unknown specific signer",
		signers: signers,
		conds: []policy.DepthCondition{{
			Condition: policy.Sigs(
				policy.Specific(descriptor.Fingerprint{
					1, 2, 3, 4,
				}),
				policy.NoTimelock(),
			),
		}},
		classes: segwit,
		code:    ErrUnknownConditionSigner,
	}, {
		name:    "threshold above signers",
		signers: signers,
		conds: []policy.DepthCondition{{
			Condition: policy.Sigs(
				policy.AtLeast(3), policy.NoTimelock(),
			),
		}},
		classes: segwit,
		code:    ErrInsufficientSignerCount,
	}, {
		name:    "zero threshold",
		signers: signers,
		conds: []policy.DepthCondition{{
			Condition: policy.Sigs(
				policy.AtLeast(0), policy.NoTimelock(),
			),
		}},
		classes: segwit,
		code:    ErrInvalidThreshold,
	}, {
		name:    "duplicate condition",
		signers: signers,
		conds: []policy.DepthCondition{
			{Depth: 1, Condition: all},
			{Depth: 1, Condition: all},
		},
		classes: segwit,
		code:    ErrDuplicateCondition,
	}, {
		name:    "invalid timelock",
		signers: signers,
		conds: []policy.DepthCondition{{
			Condition: policy.Sigs(
				policy.All(), policy.AfterHeight(0),
			),
		}},
		classes: segwit,
		code:    ErrInvalidTimelock,
	}, {
		name:    "invalid class",
		signers: signers,
		conds:   allOrAnyLater(),
		classes: []descriptor.Class{descriptor.Class(9)},
		code:    ErrInvalidClass,
	}, {
		name:    "no signers",
		conds:   []policy.DepthCondition{{Condition: all}},
		classes: segwit,
		code:    ErrNoSigners,
	}, {
		name:    "no conditions",
		signers: signers,
		classes: segwit,
		code:    ErrNoConditions,
	}, {
		name:    "no classes",
		signers: signers,
		conds:   allOrAnyLater(),
		code:    ErrNoDescriptorClasses,
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(
				tc.signers, tc.conds, tc.classes,
				descriptor.DefaultTerminal(), Testnet,
			)
			require.Error(t, err)
			require.True(t, IsError(err, tc.code), "got %v", err)
		})
	}
}

// TestAddSignerAtomic checks that a rejected signer leaves the settings
// untouched.
func TestAddSignerAtomic(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, descriptor.SegwitV0)
	before, err := settings.Bytes()
	require.NoError(t, err)

	err = settings.AddSigner(settings.Signers()[1])
	require.True(t, IsError(err, ErrDuplicateSigner))

	_, master := testSigner(t, 9, keyorigin.Bip87, Testnet)
	err = settings.AddSigner(Signer{Xpub: master})
	require.ErrorIs(t, err, ErrPrivateSigner)

	err = settings.AddCondition(3, policy.Sigs(
		policy.AtLeast(5), policy.NoTimelock(),
	))
	require.True(t, IsError(err, ErrInsufficientSignerCount))

	after, err := settings.Bytes()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Len(t, settings.Signers(), 2)
}

// TestAddDescriptorClass checks that classes form a sorted set.
func TestAddDescriptorClass(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, descriptor.TaprootC0)
	require.NoError(t, settings.AddDescriptorClass(descriptor.SegwitV0))
	require.NoError(t, settings.AddDescriptorClass(descriptor.TaprootC0))
	require.NoError(t, settings.AddDescriptorClass(descriptor.PreSegwit))

	desc := settings.Descriptor()
	require.Equal(t, []descriptor.Class{
		descriptor.PreSegwit, descriptor.SegwitV0, descriptor.TaprootC0,
	}, desc.Classes)
	require.True(t, desc.HasClass(descriptor.SegwitV0))
	require.False(t, desc.HasClass(descriptor.NestedV0))
}

// TestTwoSignerTimelockedWallet compiles a wallet spendable by both signers
// or by either of them after a date.
func TestTwoSignerTimelockedWallet(t *testing.T) {
	t.Parallel()

	build := func() string {
		settings := testSettings(t, descriptor.SegwitV0)
		desc, err := settings.DescriptorForClass(descriptor.SegwitV0)
		require.NoError(t, err)

		return desc.String()
	}

	const (
		first = "[4ba43603/87h/1h/0h]tpubDCyFWFNK7B8U86EyYer1ejGN2fKiQ" +
			"zq5ZV7u2aFmje24AGm9T9fDewjBiPY7Wnws8RoNYUkib22ymsiNxhqSn" +
			"hxdGSJe5PP6kJgpW4XuQB1/*/*"
		second = "[8dfc9b34/87h/1h/0h]tpubDCzzsjfsFxf8bigp6P5pNVssarNv" +
			"ddEbaCNY7oFGk3r8UViDsTHpUXggkxk3KmzQpgop1jXoA8vmnsNMfXh" +
			"EEAFa2cfcSdGxqPYS9tEnQmP/*/*"
	)
	want := "wsh(or_i(and_v(v:multi(1," + first + "," + second + ")," +
		"after(1900000000)),multi(2," + first + "," + second + ")))" +
		"#wgdmwqhv"

	text := build()
	require.Equal(t, want, text)
	require.Equal(t, text, build())

	settings := testSettings(t, descriptor.SegwitV0)
	descs, err := settings.Descriptors()
	require.NoError(t, err)
	require.Len(t, descs, 1)

	derived, err := descs[0].Derive(Testnet.Params(), 0, 0)
	require.NoError(t, err)
	require.True(t, txscript.IsPayToWitnessScriptHash(derived.PkScript))
	require.NotEmpty(t, derived.WitnessScript)
	require.Len(t, derived.Keys, 2)
}

// TestDescriptorShapes checks the descriptor kind produced for each class
// and signer count.
func TestDescriptorShapes(t *testing.T) {
	t.Parallel()

	single, err := Build(
		testSigners(t, 1, keyorigin.Bip84, Testnet),
		[]policy.DepthCondition{{
			Condition: policy.Sigs(
				policy.All(), policy.NoTimelock(),
			),
		}},
		descriptor.Classes, descriptor.DefaultTerminal(), Testnet,
	)
	require.NoError(t, err)

	multi := testSettings(t, descriptor.Classes...)

	tests := []struct {
		settings *WalletSettings
		class    descriptor.Class
		prefix   string
	}{
		{single, descriptor.PreSegwit, "pkh("},
		{single, descriptor.SegwitV0, "wpkh("},
		{single, descriptor.NestedV0, "sh(wpkh("},
		{single, descriptor.TaprootC0, "tr("},
		{multi, descriptor.PreSegwit, "sh("},
		{multi, descriptor.SegwitV0, "wsh("},
		{multi, descriptor.NestedV0, "sh(wsh("},
		{multi, descriptor.TaprootC0, "tr("},
	}

	for _, tc := range tests {
		desc, err := tc.settings.DescriptorForClass(tc.class)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(desc.String(), tc.prefix),
			"%v: %s", tc.class, desc)
	}

	// The script path of a multi signer taproot wallet hides behind an
	// unsatisfiable internal key.
	desc, err := multi.DescriptorForClass(descriptor.TaprootC0)
	require.NoError(t, err)
	derived, err := desc.Derive(Testnet.Params(), 1, 5)
	require.NoError(t, err)
	require.NotNil(t, derived.InternalKey)
	require.Len(t, derived.TapLeaves, 2)
}

// TestBuildThresholdProperty checks that a threshold condition is accepted
// exactly when the wallet has enough signers.
func TestBuildThresholdProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 4).Draw(t, "signers")
		k := rapid.IntRange(1, 6).Draw(t, "threshold")

		_, err := Build(
			testSigners(t, n, keyorigin.Bip87, Signet),
			[]policy.DepthCondition{{
				Condition: policy.Sigs(
					policy.AtLeast(uint16(k)),
					policy.NoTimelock(),
				),
			}},
			[]descriptor.Class{descriptor.SegwitV0},
			descriptor.DefaultTerminal(), Signet,
		)
		if k > n {
			require.True(t, IsError(err, ErrInsufficientSignerCount))
			return
		}
		require.NoError(t, err)
	})
}

// TestSettingsEncodingProperty checks that decoding and re-encoding the
// settings reproduces the same bytes.
func TestSettingsEncodingProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 3).Draw(t, "signers")
		network := Network(rapid.IntRange(0, 2).Draw(t, "network"))
		mask := rapid.IntRange(1, 1<<len(descriptor.Classes)-1).Draw(
			t, "classes",
		)
		var classes []descriptor.Class
		for i, class := range descriptor.Classes {
			if mask&(1<<i) != 0 {
				classes = append(classes, class)
			}
		}
		blocks := rapid.Uint32Range(1, 0xffff).Draw(t, "blocks")

		signers := testSigners(t, n, keyorigin.Bip87, network)
		signers[0].Device = "coldcard"
		signers[0].Name = rapid.String().Draw(t, "name")

		conds := []policy.DepthCondition{
			{
				Condition: policy.Sigs(
					policy.All(), policy.NoTimelock(),
				),
			},
			{
				Depth: 2,
				Condition: policy.Sigs(
					policy.Specific(signers[0].Fingerprint),
					policy.OlderBlocks(blocks),
				),
			},
		}

		settings, err := Build(
			signers, conds, classes, descriptor.DefaultTerminal(),
			network,
		)
		require.NoError(t, err)
		settings.SetElectrum(CustomElectrumServer(
			"localhost", 50001, ElectrumNone,
		))

		data, err := settings.Bytes()
		require.NoError(t, err)

		var decoded WalletSettings
		require.NoError(t, decoded.FromBytes(data))

		again, err := decoded.Bytes()
		require.NoError(t, err)
		require.Equal(t, data, again)

		require.Equal(t, settings.Network(), decoded.Network())
		require.Equal(t, settings.Electrum(), decoded.Electrum())

		wantID, err := settings.descriptor.ID()
		require.NoError(t, err)
		gotID, err := decoded.descriptor.ID()
		require.NoError(t, err)
		require.Equal(t, wantID, gotID)
	})
}

// TestSettingsSignerMismatch checks that settings whose signers do not
// match their descriptor are rejected.
func TestSettingsSignerMismatch(t *testing.T) {
	t.Parallel()

	first := testSettings(t, descriptor.SegwitV0)

	other, err := Build(
		testSigners(t, 3, keyorigin.Bip87, Testnet), allOrAnyLater(),
		[]descriptor.Class{descriptor.SegwitV0},
		descriptor.DefaultTerminal(), Testnet,
	)
	require.NoError(t, err)

	desc, err := first.descriptor.Bytes()
	require.NoError(t, err)
	signers, err := encodeSigners(other.signers)
	require.NoError(t, err)

	var (
		network  = uint8(Testnet)
		electrum = encodeElectrum(DefaultElectrumServer())
	)
	data, err := encodeStream(
		tlv.MakePrimitiveRecord(settingsDescriptorType, &desc),
		tlv.MakePrimitiveRecord(settingsNetworkType, &network),
		tlv.MakePrimitiveRecord(settingsSignersType, &signers),
		tlv.MakePrimitiveRecord(settingsElectrumType, &electrum),
	)
	require.NoError(t, err)

	var decoded WalletSettings
	require.ErrorIs(t, decoded.FromBytes(data), ErrSignerMismatch)

	// A mainnet network does not match a testnet descriptor.
	network = uint8(Mainnet)
	signers, err = encodeSigners(first.signers)
	require.NoError(t, err)
	data, err = encodeStream(
		tlv.MakePrimitiveRecord(settingsDescriptorType, &desc),
		tlv.MakePrimitiveRecord(settingsNetworkType, &network),
		tlv.MakePrimitiveRecord(settingsSignersType, &signers),
		tlv.MakePrimitiveRecord(settingsElectrumType, &electrum),
	)
	require.NoError(t, err)
	require.Error(t, decoded.FromBytes(data))
}

// TestSettingsMissingRecord checks that every record is required.
func TestSettingsMissingRecord(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, descriptor.SegwitV0)
	desc, err := settings.descriptor.Bytes()
	require.NoError(t, err)

	network := uint8(Testnet)
	data, err := encodeStream(
		tlv.MakePrimitiveRecord(settingsDescriptorType, &desc),
		tlv.MakePrimitiveRecord(settingsNetworkType, &network),
	)
	require.NoError(t, err)

	var decoded WalletSettings
	require.ErrorIs(t, decoded.FromBytes(data), ErrMissingField)
}

// TestSettingsDecodeValidates checks that decoding rejects well formed
// settings describing a wallet Build would not create.
func TestSettingsDecodeValidates(t *testing.T) {
	t.Parallel()

	unknown := descriptor.Fingerprint{0xde, 0xad, 0xbe, 0xef}

	testCases := []struct {
		name   string
		mutate func(d *WalletDescriptor)
		code   ErrorCode
	}{
		{
			name: "threshold above signer count",
			mutate: func(d *WalletDescriptor) {
				d.Conditions = []policy.DepthCondition{{
					Condition: policy.Sigs(
						policy.AtLeast(7),
						policy.NoTimelock(),
					),
				}}
			},
			code: ErrInsufficientSignerCount,
		},
		{
			name: "unknown specific signer",
			mutate: func(d *WalletDescriptor) {
				d.Conditions = []policy.DepthCondition{{
					Condition: policy.Sigs(
						policy.Specific(unknown),
						policy.NoTimelock(),
					),
				}}
			},
			code: ErrUnknownConditionSigner,
		},
		{
			name: "absolute height out of range",
			mutate: func(d *WalletDescriptor) {
				d.Conditions = []policy.DepthCondition{{
					Condition: policy.Sigs(
						policy.Any(),
						policy.AfterHeight(0),
					),
				}}
			},
			code: ErrInvalidTimelock,
		},
		{
			name: "no conditions",
			mutate: func(d *WalletDescriptor) {
				d.Conditions = nil
			},
			code: ErrNoConditions,
		},
		{
			name: "no classes",
			mutate: func(d *WalletDescriptor) {
				d.Classes = nil
			},
			code: ErrNoDescriptorClasses,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			settings := testSettings(t, descriptor.SegwitV0)
			tc.mutate(&settings.descriptor)

			data, err := settings.Bytes()
			require.NoError(t, err)

			var decoded WalletSettings
			err = decoded.FromBytes(data)
			require.Error(t, err)
			require.True(t, IsError(err, tc.code), "got %v", err)
		})
	}
}
