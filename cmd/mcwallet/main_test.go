package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/mycitadel/mcwallet/descriptor"
	"github.com/mycitadel/mcwallet/keyorigin"
	"github.com/mycitadel/mcwallet/policy"
	"github.com/mycitadel/mcwallet/wallet"
	"github.com/stretchr/testify/require"
)

// TestConfigValidate checks option validation and derived paths.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	require.NoError(t, cfg.validate())
	require.Equal(t, wallet.Testnet, cfg.network)
	require.Equal(t, filepath.Join(defaultAppDataDir, "testnet"),
		cfg.managerConfig().DataDir)

	dir := t.TempDir()
	cfg = defaultConfig()
	cfg.AppDataDir = dir
	cfg.Network = "mainnet"
	require.NoError(t, cfg.validate())
	require.Equal(t, wallet.Mainnet, cfg.network)
	require.Equal(t, filepath.Join(dir, defaultLogDirname), cfg.LogDir)

	cfg = defaultConfig()
	cfg.DBDriver = "postgres"
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Network = "regtest"
	require.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.MaxLogFileSize = 0
	require.Error(t, cfg.validate())
}

// TestCleanAndExpandPath checks home and environment expansion.
func TestCleanAndExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("MCWALLET_TEST_DIR", "/tmp/mcw")

	require.Empty(t, cleanAndExpandPath(""))
	require.Equal(t, filepath.Join(home, "wallets"),
		cleanAndExpandPath("~/wallets/"))
	require.Equal(t, "/tmp/mcw/logs",
		cleanAndExpandPath("$MCWALLET_TEST_DIR/./logs"))
}

// TestParseDebugLevels checks global and per subsystem levels.
func TestParseDebugLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"WLLT=trace,WLDB=warn", true},
		{"MCWL=info", true},
		{"verbose", false},
		{"WLLT", false},
		{"XXXX=debug", false},
		{"WLLT=loud", false},
		{"WLLT=debug,", false},
	}

	for _, tc := range tests {
		err := parseAndSetDebugLevels(tc.level)
		if tc.valid {
			require.NoError(t, err, tc.level)
		} else {
			require.Error(t, err, tc.level)
		}
	}

	require.Equal(t, []string{"MCWL", "WLDB", "WLLT"},
		supportedSubsystems())
}

// TestTemplateOptions checks the preset selection.
func TestTemplateOptions(t *testing.T) {
	t.Parallel()

	clk := clock.NewTestClock(testTime)

	tests := []struct {
		opts     templateOptions
		standard keyorigin.DerivationStandard
		class    descriptor.Class
		fail     bool
	}{
		{
			opts:     templateOptions{Template: "singlesig"},
			standard: keyorigin.Bip84,
			class:    descriptor.SegwitV0,
		},
		{
			opts:     templateOptions{Template: "taproot"},
			standard: keyorigin.Bip86,
			class:    descriptor.TaprootC0,
		},
		{
			opts: templateOptions{
				Template: "hodling", Threshold: 3,
			},
			standard: keyorigin.Bip87,
			class:    descriptor.SegwitV0,
		},
		{
			opts: templateOptions{
				Template: "hodling", Threshold: 2,
			},
			fail: true,
		},
		{
			opts:     templateOptions{Template: "multisig"},
			standard: keyorigin.Bip87,
			class:    descriptor.SegwitV0,
		},
		{
			opts: templateOptions{
				Template: "multisig", Threshold: 1,
			},
			fail: true,
		},
		{
			opts: templateOptions{Template: "custom"},
			fail: true,
		},
	}

	for _, tc := range tests {
		tmpl, err := tc.opts.template(clk, wallet.Testnet)
		if tc.fail {
			require.Error(t, err, tc.opts.Template)
			continue
		}

		require.NoError(t, err, tc.opts.Template)
		require.Equal(t, tc.standard, tmpl.Standard)
		require.Equal(t, tc.class, tmpl.DescriptorClass())
		require.Equal(t, wallet.Testnet, tmpl.Network)
	}
}

// TestPsbtFile checks that PSBT files keep their encoding.
func TestPsbtFile(t *testing.T) {
	t.Parallel()

	packet := testPacket(t)

	dir := t.TempDir()
	for _, b64 := range []bool{false, true} {
		path := filepath.Join(dir, "tx.psbt")
		require.NoError(t, writePsbt(path, packet, b64))

		read, isB64, err := readPsbt(path)
		require.NoError(t, err)
		require.Equal(t, b64, isB64)
		require.Equal(t, packet.UnsignedTx.TxHash(),
			read.UnsignedTx.TxHash())
	}

	_, err := parseWalletID("not a hash")
	require.Error(t, err)
}

// testPacket returns a PSBT spending a fixed outpoint.
func testPacket(t *testing.T) *psbt.Packet {
	t.Helper()

	packet, err := psbt.New(
		[]*wire.OutPoint{{Hash: chainhash.Hash{1}, Index: 2}},
		[]*wire.TxOut{{Value: 1000, PkScript: []byte{0x51}}},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)

	return packet
}

// writeTestWallet writes a single signer testnet wallet file to the
// directory.
func writeTestWallet(t *testing.T, dir string) string {
	t.Helper()

	master, err := hdkeychain.NewMaster(
		bytes.Repeat([]byte{3}, hdkeychain.RecommendedSeedLen),
		wallet.Testnet.Params(),
	)
	require.NoError(t, err)

	key := master
	for _, index := range keyorigin.Bip84.AccountPath(0, true) {
		key, err = key.Derive(index)
		require.NoError(t, err)
	}
	xpub, err := key.Neuter()
	require.NoError(t, err)

	signer, err := wallet.SignerWithXpub(xpub, keyorigin.Bip84,
		wallet.Testnet)
	require.NoError(t, err)

	settings, err := wallet.Build(
		[]wallet.Signer{signer},
		[]policy.DepthCondition{{
			Condition: policy.Sigs(policy.All(), policy.NoTimelock()),
		}},
		[]descriptor.Class{descriptor.SegwitV0},
		descriptor.DefaultTerminal(), wallet.Testnet,
	)
	require.NoError(t, err)

	path := filepath.Join(dir, "spending.mcw")
	require.NoError(t, wallet.NewWallet(settings).WriteFile(path))

	return path
}

// TestRecordDraft checks that signed PSBTs are kept as drafts of a wallet
// file and moved to its history once finalized.
func TestRecordDraft(t *testing.T) {
	t.Parallel()

	path := writeTestWallet(t, t.TempDir())
	env := &environment{}

	packet := testPacket(t)
	complete, err := env.recordDraft(path, packet)
	require.NoError(t, err)
	require.False(t, complete)

	w, err := wallet.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, w.Drafts, 1)
	require.Empty(t, w.History)

	// Recording the same transaction again replaces the draft and
	// finalizes it.
	packet.Inputs[0].FinalScriptSig = []byte{0x51}
	complete, err = env.recordDraft(path, packet)
	require.NoError(t, err)
	require.True(t, complete)

	w, err = wallet.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, w.Drafts)
	require.Len(t, w.History, 1)
	require.Equal(t, packet.UnsignedTx.TxHash(),
		w.History[0].UnsignedTx.TxHash())
}

var testTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
